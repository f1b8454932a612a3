package main

import (
	"fmt"
	"io"
)

// heapDumper renders every live heap object in allocation order for -dump.
// Each object already knows its own shape, so the dumper just asks each
// one to describe itself instead of re-deriving structure from a
// byte-addressed memory image.
type heapDumper struct {
	heap *Heap
	out  io.Writer
}

func dumpHeap(heap *Heap, out io.Writer) {
	(heapDumper{heap: heap, out: out}).dump()
}

func (d heapDumper) dump() {
	fmt.Fprintf(d.out, "# Heap Dump\n")
	d.heap.Objects(func(addr uint, obj heapObj) bool {
		d.dumpObject(addr, obj)
		return true
	})
}

func (d heapDumper) dumpObject(addr uint, obj heapObj) {
	switch o := obj.(type) {
	case *String:
		fmt.Fprintf(d.out, "  @0x%x string %q\n", addr, o.Bytes())
	case *Array:
		fmt.Fprintf(d.out, "  @0x%x array len=%d %s\n", addr, o.Len(), d.arrayElems(o))
	case *Struct:
		d.dumpStruct(addr, o)
	case *Func:
		d.dumpFunc(addr, o)
	case *Thread:
		fmt.Fprintf(d.out, "  @0x%x thread frames=%d stack=%d\n", addr, len(o.frames), len(o.stack))
	default:
		fmt.Fprintf(d.out, "  @0x%x %T\n", addr, obj)
	}
}

func (d heapDumper) arrayElems(a *Array) string {
	s := "["
	for i, v := range a.elems {
		if i > 0 {
			s += ", "
		}
		s += toString(d.heap, v)
	}
	return s + "]"
}

func (d heapDumper) dumpStruct(addr uint, s *Struct) {
	fmt.Fprintf(d.out, "  @0x%x struct load=%d cap=%d\n", addr, s.load, len(s.entries))
	for _, e := range s.entries {
		if e.state != entryOccupied {
			continue
		}
		fmt.Fprintf(d.out, "    %s = %s\n", e.key.Bytes(), toString(d.heap, e.val))
	}
}

func (d heapDumper) dumpFunc(addr uint, f *Func) {
	fmt.Fprintf(d.out, "  @0x%x func params=%d locals=%d consts=%d ops=%d\n",
		addr, f.nParams, f.nLocals, len(f.consts), len(f.ops))
	for i, c := range f.consts {
		fmt.Fprintf(d.out, "    const[%d] = %s\n", i, toString(d.heap, c))
	}
	for i, op := range f.ops {
		fmt.Fprintf(d.out, "    %4d  %-10s %d\n", i, op.Opcode(), op.Arg())
	}
}
