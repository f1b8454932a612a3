package main

import "github.com/sl-lang/sl/internal/arena"

// objKind tags a heap allocation with its concrete object type, mirroring
// original_source/source/sl/heap.h's ObjectType discriminant.
type objKind uint8

const (
	objString objKind = iota
	objArray
	objStruct
	objFunc
	objThread
)

func (k objKind) String() string {
	switch k {
	case objString:
		return "string"
	case objArray:
		return "array"
	case objStruct:
		return "struct"
	case objFunc:
		return "func"
	case objThread:
		return "thread"
	default:
		return "?"
	}
}

// object is embedded by every heap-allocated type (String, Array, Struct,
// Func, Thread). It records the type discriminant and the object's stable
// arena address, used by stringify.go to print "<kind>@<hex-address>".
type object struct {
	kind objKind
	addr uint
}

// Addr returns the object's stable arena address.
func (o *object) Addr() uint { return o.addr }

// Kind returns the object's heap type discriminant.
func (o *object) Kind() objKind { return o.kind }

type heapObj interface {
	setAddr(kind objKind, addr uint)
}

func (o *object) setAddr(kind objKind, addr uint) {
	o.kind, o.addr = kind, addr
}

// heapLimitError is panicked when an allocation would exceed a Heap's
// configured object limit (the -heap-limit CLI flag). It is recovered at
// the same boundaries that recover compileError and vmInvariantError,
// turning an arena.LimitError into a host-visible error rather than an
// unbounded allocation.
type heapLimitError struct {
	cause error
}

func (e heapLimitError) Error() string { return e.cause.Error() }
func (e heapLimitError) Unwrap() error { return e.cause }

// Heap is the object allocator shared by a Compiler and every Thread that
// runs the Funcs it produces. Objects are allocated and never freed: a
// production embedding is free to substitute an arena or tracing collector
// here so long as reachability is preserved; this implementation is the
// arena. Allocation itself is delegated to a paged object table
// (see internal/arena).
type Heap struct {
	pages arena.Pages
}

// NewHeap creates an empty Heap. limit, if nonzero, bounds the number of
// objects the heap will allocate before allocations start failing with a
// heapLimitError.
func NewHeap(limit uint) *Heap {
	return &Heap{pages: arena.Pages{Limit: limit}}
}

func (h *Heap) alloc(kind objKind, obj heapObj) {
	addr, err := h.pages.Alloc(obj)
	if err != nil {
		panic(heapLimitError{err})
	}
	obj.setAddr(kind, addr)
}

// NewString allocates a String with a private copy of b's bytes.
func (h *Heap) NewString(b []byte) *String {
	s := &String{bytes: append([]byte(nil), b...)}
	h.alloc(objString, s)
	return s
}

// NewArray allocates an Array of the given fixed length, nil-filled.
func (h *Heap) NewArray(n int) *Array {
	a := &Array{elems: make([]Value, n)}
	h.alloc(objArray, a)
	return a
}

// NewStruct allocates an empty Struct.
func (h *Heap) NewStruct() *Struct {
	s := &Struct{entries: make([]structEntry, structInitialCap)}
	h.alloc(objStruct, s)
	return s
}

// NewFunc allocates a Func from already-built consts/ops/arity. Func is
// immutable once allocated, so the Compiler must finish building before
// calling this.
func (h *Heap) NewFunc(consts []Value, ops []Op, nParams, nLocals int) *Func {
	f := &Func{consts: consts, ops: ops, nParams: nParams, nLocals: nLocals}
	h.alloc(objFunc, f)
	return f
}

// NewThread allocates a Thread bound to this Heap and the given global
// value (a Struct, by convention).
func (h *Heap) NewThread(global Value) *Thread {
	t := &Thread{heap: h, global: global}
	h.alloc(objThread, t)
	return t
}

// Objects calls f for every live object in allocation order; used by the
// -dump CLI diagnostic (dump.go).
func (h *Heap) Objects(f func(addr uint, obj heapObj) bool) {
	h.pages.Range(func(addr uint, v interface{}) bool {
		return f(addr, v.(heapObj))
	})
}
