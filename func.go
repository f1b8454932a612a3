package main

// Func is an immutable, heap-allocated function object: a constant pool, an
// op array, and the parameter/local counts needed to lay out a call frame.
// It has no captured environment — functions capture only their own
// constant pool and ops, never an enclosing scope.
//
// Grounded on original_source/source/sl/func.h.
type Func struct {
	object
	consts  []Value
	ops     []Op
	nParams int
	nLocals int
}

func (f *Func) NumParams() int { return f.nParams }
func (f *Func) NumLocals() int { return f.nLocals }
func (f *Func) Consts() []Value { return f.consts }
func (f *Func) Ops() []Op       { return f.ops }
