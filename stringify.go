package main

import (
	"fmt"
	"strconv"
)

// toString renders a Value the way print and string concatenation do: Nil
// formats as "nil", Number with %.14g-equivalent precision, String as
// itself, and every heap reference type as "<kind>@<hex-address>".
//
// Grounded on original_source/source/sl/val.cpp's String::createFromVal,
// which builds these same forms via snprintf("%.14g", ...) and
// snprintf("func@%p", ...). Go's strconv.FormatFloat with an explicit
// precision of 14 and the 'g' verb reproduces %.14g exactly (both trim
// trailing zeros and pick a fixed vs. exponential form from significant
// digit count, unlike FormatFloat's prec -1 "shortest round-trip" mode,
// which is a different algorithm).
//
// Object addresses come from the object's arena address (internal/arena),
// not a raw Go pointer formatted with %p: arena addresses are assigned in
// allocation order and so are stable and reproducible across runs given
// the same program, which a host pointer value is not.
func toString(h *Heap, v Value) string {
	switch v.Kind() {
	case KindNil:
		return "nil"
	case KindNumber:
		return formatNumber(v.Number())
	case KindString:
		return string(v.str().Bytes())
	case KindArray:
		return addrString("array", v.array())
	case KindStruct:
		return addrString("struct", v.structVal())
	case KindFunc:
		return addrString("func", v.fn())
	case KindThread:
		return addrString("thread", v.thread())
	default:
		panic(vmInvariantf("toString: unknown value kind %v", v.Kind()))
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', 14, 64)
}

type addressable interface {
	Addr() uint
}

func addrString(kind string, obj addressable) string {
	return fmt.Sprintf("%s@0x%x", kind, obj.Addr())
}

// toHeapString converts v to its stringified form and heap-allocates the
// result as a String, the way the VM's Add opcode and its struct key
// lookups need to.
func toHeapString(h *Heap, v Value) *String {
	if v.IsString() {
		return v.str()
	}
	return h.NewString([]byte(toString(h, v)))
}
