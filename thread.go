package main

import (
	"context"
	"errors"
	"math"

	"github.com/sl-lang/sl/internal/flushio"
	"github.com/sl-lang/sl/internal/panicerr"
	"github.com/sl-lang/sl/internal/runeio"
)

// Thread is a single execution context: a value stack, a call stack, and
// the Heap and global Struct it was given at creation. One Thread runs one
// call-stack at a time; nothing about the dispatch loop suspends, so a
// Thread is only ever driven by one goroutine at a time.
//
// Grounded on original_source/source/sl/thread.h/thread.cpp.
type Thread struct {
	object
	heap   *Heap
	global Value

	stack  []Value
	frames []Frame

	out   flushio.WriteFlusher
	trace func(mess string, args ...interface{})
}

// SetOutput installs the writer Print writes to. A nil out discards print
// output (tests that only care about the return value use this).
func (t *Thread) SetOutput(out flushio.WriteFlusher) { t.out = out }

// SetTrace installs a per-op trace callback (wired to -trace by the CLI via
// internal/logio); nil disables tracing.
func (t *Thread) SetTrace(trace func(mess string, args ...interface{})) { t.trace = trace }

func (t *Thread) push(v Value) { t.stack = append(t.stack, v) }

func (t *Thread) pop() Value {
	n := len(t.stack) - 1
	v := t.stack[n]
	t.stack = t.stack[:n]
	return v
}

// Call invokes fn as the host: args are normalized to fn's parameter count
// exactly as a bytecode Call would normalize them, and the Thread's global
// is bound as the outermost frame's inst (so GetInst at the top level
// yields the same value GetGlobal would). It runs the dispatch loop to
// completion and returns the value the script's outermost Ret produced.
// ctx is checked cooperatively between ops: a long-running script can be
// aborted by a timeout or cancellation without the dispatch loop itself
// knowing anything about contexts.
//
// Any vmInvariantError (an implementation bug, not a user-visible failure)
// is recovered here and returned as an error, the same boundary discipline
// Compile uses for compileError/lexError.
func (t *Thread) Call(ctx context.Context, fn *Func, args ...Value) (Value, error) {
	var result Value
	err := panicerr.Recover("thread.Call", func() error {
		for _, a := range args {
			t.push(a)
		}
		t.invoke(fn, t.global, len(args), len(args))
		result = t.run(ctx)
		return nil
	})
	if err != nil {
		var ve vmInvariantError
		if errors.As(err, &ve) {
			return NilValue, ve
		}
		var he heapLimitError
		if errors.As(err, &he) {
			return NilValue, he
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return NilValue, ctxErr
		}
		return NilValue, err
	}
	return result, nil
}

// invoke normalizes arity and pushes a new frame, assuming the nArgs
// argument values are already the top nArgs cells of the stack (the
// bytecode Call/InstCall opcodes leave the callee/receiver+key cells
// beneath them in place; Ret discards those via nInps when it unwinds).
func (t *Thread) invoke(fn *Func, inst Value, nArgs, nInps int) {
	t.normalizeArity(fn, nArgs)
	// nInps counted the caller's nArgs argument cells; after normalization
	// exactly fn.NumParams() of them remain below the new frame.
	nInps += fn.NumParams() - nArgs

	base := len(t.stack)
	for i := 0; i < fn.NumLocals(); i++ {
		t.push(NilValue)
	}

	t.frames = append(t.frames, Frame{
		fn:           fn,
		inst:         inst,
		nInps:        nInps,
		nArgs:        fn.NumParams(),
		baseStackIdx: base,
	})
}

// normalizeArity adjusts the top nArgs cells of the stack to exactly
// fn.NumParams() cells: dropping extras, or padding with Nil.
func (t *Thread) normalizeArity(fn *Func, nArgs int) {
	nParams := fn.NumParams()
	switch {
	case nArgs > nParams:
		t.stack = t.stack[:len(t.stack)-(nArgs-nParams)]
	case nArgs < nParams:
		for i := 0; i < nParams-nArgs; i++ {
			t.push(NilValue)
		}
	}
}

// run executes ops from the top frame until the outermost frame returns,
// delivering its value. Every opcode in the dispatch table is handled
// here; an opcode outside Opcode's range, or an op whose stack effect
// can't be satisfied, is a vmInvariantError — a bug in whatever produced
// the Func, since a Compiler-built Func can never trigger one.
func (t *Thread) run(ctx context.Context) Value {
	for {
		if err := ctx.Err(); err != nil {
			panic(err)
		}

		f := &t.frames[len(t.frames)-1]
		if f.opIt < 0 || f.opIt >= len(f.fn.Ops()) {
			panic(vmInvariantf("opIt %d out of range for %d ops", f.opIt, len(f.fn.Ops())))
		}
		op := f.fn.Ops()[f.opIt]
		f.opIt++

		if t.trace != nil {
			t.trace("%s %d", op.Opcode(), op.Arg())
		}

		switch op.Opcode() {
		case OpGetInst:
			t.push(f.inst)

		case OpGetGlobal:
			t.push(t.global)

		case OpGetConst:
			consts := f.fn.Consts()
			a := int(op.Arg())
			if a < 0 || a >= len(consts) {
				panic(vmInvariantf("GetConst %d out of range for %d consts", a, len(consts)))
			}
			t.push(consts[a])

		case OpGetVar:
			idx := f.baseStackIdx + int(op.Arg())
			if idx < 0 || idx >= len(t.stack) {
				panic(vmInvariantf("GetVar %d out of range", op.Arg()))
			}
			t.push(t.stack[idx])

		case OpSetVar:
			idx := f.baseStackIdx + int(op.Arg())
			if idx < 0 || idx >= len(t.stack) {
				panic(vmInvariantf("SetVar %d out of range", op.Arg()))
			}
			t.stack[idx] = t.pop()

		case OpGetElem:
			key := t.pop()
			base := t.pop()
			t.push(t.getElem(base, key))

		case OpSetElem:
			val := t.pop()
			key := t.pop()
			base := t.pop()
			t.setElem(base, key, val)

		case OpEat:
			t.pop()

		case OpNeg:
			t.push(numericUnary(t.pop(), func(a float64) float64 { return -a }))

		case OpAdd:
			b, a := t.pop(), t.pop()
			t.push(t.add(a, b))

		case OpSub:
			b, a := t.pop(), t.pop()
			t.push(numericBinary(a, b, func(x, y float64) float64 { return x - y }))

		case OpMul:
			b, a := t.pop(), t.pop()
			t.push(numericBinary(a, b, func(x, y float64) float64 { return x * y }))

		case OpDiv:
			b, a := t.pop(), t.pop()
			t.push(numericBinary(a, b, func(x, y float64) float64 { return x / y }))

		case OpMod:
			b, a := t.pop(), t.pop()
			t.push(numericBinary(a, b, math.Mod))

		case OpCmpEq:
			b, a := t.pop(), t.pop()
			t.push(boolValue(a.Equals(b)))

		case OpCmpNEq:
			b, a := t.pop(), t.pop()
			t.push(boolValue(!a.Equals(b)))

		case OpCmpLt, OpCmpGt, OpCmpLtEq, OpCmpGtEq:
			b, a := t.pop(), t.pop()
			t.push(boolValue(compareNumbers(op.Opcode(), a, b)))

		case OpNotL:
			t.push(boolValue(!t.pop().AsBool()))

		case OpAndL:
			b, a := t.pop(), t.pop()
			t.push(boolValue(a.AsBool() && b.AsBool()))

		case OpOrL:
			b, a := t.pop(), t.pop()
			t.push(boolValue(a.AsBool() || b.AsBool()))

		case OpMakeArray:
			t.push(arrayValue(t.makeArray(int(op.Arg()))))

		case OpMakeStruct:
			t.push(structValue(t.makeStruct(int(op.Arg()))))

		case OpPrint:
			t.doPrint(t.pop())

		case OpJmp:
			f.opIt = int(op.Arg())

		case OpJmpN:
			if !t.pop().AsBool() {
				f.opIt = int(op.Arg())
			}

		case OpCall:
			t.dispatchCall(f, int(op.Arg()))

		case OpInstCall:
			t.dispatchInstCall(f, int(op.Arg()))

		case OpRet:
			if v, done := t.doReturn(f); done {
				return v
			}

		default:
			panic(vmInvariantf("unknown opcode %v", op.Opcode()))
		}
	}
}

// dispatchCall implements Call n: the callee occupies stack[len-n-1], with
// its n args above it. If the callee isn't a Func, the n+1 inputs are
// dropped and Nil is pushed in their place — the callee/args cells are
// otherwise left in place (not popped) until Ret unwinds them via nInps.
func (t *Thread) dispatchCall(f *Frame, n int) {
	calleeIdx := len(t.stack) - n - 1
	if calleeIdx < 0 {
		panic(vmInvariantf("Call %d: stack underflow", n))
	}
	callee := t.stack[calleeIdx]
	if !callee.IsFunc() {
		t.stack = t.stack[:calleeIdx]
		t.push(NilValue)
		return
	}
	t.invoke(callee.fn(), f.inst, n, n+1)
}

// dispatchInstCall implements InstCall n: receiver and key occupy
// stack[len-n-2 : len-n], and the callee is getElem(receiver, key). The
// receiver is bound as the new frame's inst, enabling `this` inside the
// callee.
func (t *Thread) dispatchInstCall(f *Frame, n int) {
	baseIdx := len(t.stack) - n - 2
	if baseIdx < 0 {
		panic(vmInvariantf("InstCall %d: stack underflow", n))
	}
	base := t.stack[baseIdx]
	key := t.stack[baseIdx+1]
	callee := t.getElem(base, key)
	if !callee.IsFunc() {
		t.stack = t.stack[:baseIdx]
		t.push(NilValue)
		return
	}
	t.invoke(callee.fn(), base, n, n+2)
}

// doReturn implements Ret: pop the return value, unwind the stack past
// this frame's locals and its nInps input cells, and pop the frame. If no
// frame remains, the value is ready to deliver to the host; otherwise it
// is pushed for the caller and execution resumes at the caller's saved
// opIt (implicit: the caller's Frame was never touched while this frame
// ran).
func (t *Thread) doReturn(f *Frame) (Value, bool) {
	if len(t.stack) != f.baseStackIdx+f.fn.NumLocals()+1 {
		panic(vmInvariantf("Ret: stack size %d does not match frame (base %d, locals %d)",
			len(t.stack), f.baseStackIdx, f.fn.NumLocals()))
	}
	v := t.pop()
	t.stack = t.stack[:f.baseStackIdx-f.nInps]
	t.frames = t.frames[:len(t.frames)-1]
	if len(t.frames) == 0 {
		return v, true
	}
	t.push(v)
	return NilValue, false
}

// getElem implements element access: array indexing by integer subscript,
// struct lookup by stringified key, Nil for anything else.
func (t *Thread) getElem(base, key Value) Value {
	switch {
	case base.IsArray():
		return base.array().Get(key)
	case base.IsStruct():
		return base.structVal().Get(toHeapString(t.heap, key))
	default:
		return NilValue
	}
}

// setElem mirrors getElem for writes: out-of-range array writes and
// non-array/struct bases are silently ignored; a Nil value removes a
// struct key.
func (t *Thread) setElem(base, key, val Value) {
	switch {
	case base.IsArray():
		base.array().Set(key, val)
	case base.IsStruct():
		base.structVal().Set(toHeapString(t.heap, key), val)
	}
}

// add implements the Add opcode's dual numeric/string behavior: numeric
// if both operands are numbers, string concatenation if either is a
// string (after stringifying the other), Nil otherwise.
func (t *Thread) add(a, b Value) Value {
	if a.IsNumber() && b.IsNumber() {
		return numberValue(a.Number() + b.Number())
	}
	if a.IsString() || b.IsString() {
		as := toHeapString(t.heap, a)
		bs := toHeapString(t.heap, b)
		buf := make([]byte, 0, as.Len()+bs.Len())
		buf = append(buf, as.Bytes()...)
		buf = append(buf, bs.Bytes()...)
		return stringValue(t.heap.NewString(buf))
	}
	return NilValue
}

func numericUnary(a Value, f func(float64) float64) Value {
	if !a.IsNumber() {
		return NilValue
	}
	return numberValue(f(a.Number()))
}

func numericBinary(a, b Value, f func(x, y float64) float64) Value {
	if !a.IsNumber() || !b.IsNumber() {
		return NilValue
	}
	return numberValue(f(a.Number(), b.Number()))
}

// compareNumbers implements CmpLt/Gt/LtEq/GtEq: false whenever either
// operand isn't a number.
func compareNumbers(op Opcode, a, b Value) bool {
	if !a.IsNumber() || !b.IsNumber() {
		return false
	}
	x, y := a.Number(), b.Number()
	switch op {
	case OpCmpLt:
		return x < y
	case OpCmpGt:
		return x > y
	case OpCmpLtEq:
		return x <= y
	case OpCmpGtEq:
		return x >= y
	default:
		panic(vmInvariantf("compareNumbers: not a comparison opcode %v", op))
	}
}

// makeArray implements MakeArray n: pop n values, placing them into the
// new array in their original (source) left-to-right order.
func (t *Thread) makeArray(n int) *Array {
	a := t.heap.NewArray(n)
	for i := n - 1; i >= 0; i-- {
		a.elems[i] = t.pop()
	}
	return a
}

// makeStruct implements MakeStruct n: pairs were pushed key, value in
// source order; popping unwinds them in reverse, so on a duplicate key the
// earliest pair in source order is the one whose Set call happens last and
// therefore wins.
func (t *Thread) makeStruct(n int) *Struct {
	s := t.heap.NewStruct()
	for i := 0; i < n; i++ {
		val := t.pop()
		key := t.pop()
		s.Set(toHeapString(t.heap, key), val)
	}
	return s
}

// doPrint stringifies v and writes it as a line to the Thread's output
// through runeio's rune writer: ASCII, including the control characters
// string escapes produce, is written unchanged; C1 control runes are
// written in their 7-bit ESC form.
func (t *Thread) doPrint(v Value) {
	if t.out == nil {
		return
	}
	s := toString(t.heap, v)
	runeio.WriteANSIString(t.out, s)
	runeio.WriteANSIRune(t.out, '\n')
}

// Flush flushes the Thread's output writer, if any. The CLI driver calls
// this after each script runs and again on failure, so buffered output is
// never lost on an error exit.
func (t *Thread) Flush() error {
	if t.out == nil {
		return nil
	}
	return t.out.Flush()
}
