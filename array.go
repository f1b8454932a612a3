package main

// Array is a dense, fixed-length, ordered sequence of Value. Length is
// fixed at construction — there is no append in the core language.
//
// Grounded on original_source/source/sl/array.h/array.cpp.
type Array struct {
	object
	elems []Value
}

// Len returns the array's fixed length.
func (a *Array) Len() int { return len(a.elems) }

// indexOf returns the element index for a numeric subscript, and whether
// it is in range: the subscript must be finite, equal to its own
// truncation, and within [0, len).
func (a *Array) indexOf(key Value) (int, bool) {
	if !key.IsNumber() {
		return 0, false
	}
	n := key.Number()
	i := int(n)
	if float64(i) != n {
		return 0, false
	}
	if i < 0 || i >= len(a.elems) {
		return 0, false
	}
	return i, true
}

// Get returns the element at a numeric index, or Nil if the index is out
// of range or not an integer.
func (a *Array) Get(key Value) Value {
	if i, ok := a.indexOf(key); ok {
		return a.elems[i]
	}
	return NilValue
}

// Set stores val at a numeric index. Out-of-range or non-integer
// subscripts are silently ignored.
func (a *Array) Set(key, val Value) {
	if i, ok := a.indexOf(key); ok {
		a.elems[i] = val
	}
}
