package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileConstantDeduplication(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(`
print 1
print 1
print "x"
print "x"
`))
	require.NoError(t, err)

	var numOnes, strXs int
	for _, v := range fn.Consts() {
		if v.IsNumber() && v.Number() == 1 {
			numOnes++
		}
		if v.IsString() && string(v.str().Bytes()) == "x" {
			strXs++
		}
	}
	assert.Equal(t, 1, numOnes, "equal number constants must be deduplicated")
	assert.Equal(t, 1, strXs, "equal string constants must be deduplicated")
}

func TestCompileEveryFuncEndsInRet(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(`print 1`))
	require.NoError(t, err)

	ops := fn.Ops()
	require.NotEmpty(t, ops)
	assert.Equal(t, OpRet, ops[len(ops)-1].Opcode())
}

func TestCompileJumpTargetsAreInRange(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(`
var i = 0
while i < 10 {
  if i == 5 { break }
  i = i + 1
}
return i
`))
	require.NoError(t, err)

	ops := fn.Ops()
	for idx, op := range ops {
		switch op.Opcode() {
		case OpJmp, OpJmpN:
			target := int(op.Arg())
			assert.True(t, target >= 0 && target < len(ops), "op %d: jump target %d out of [0,%d)", idx, target, len(ops))
		}
	}
}

func TestCompileBreakOutsideLoopIsFatal(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "test.scr", []byte("break"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'break' not within loop")
}

func TestCompileContinueOutsideLoopIsFatal(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "test.scr", []byte("continue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'continue' not within loop")
}

func TestCompileUnresolvedNameIsFatal(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "test.scr", []byte("print nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unresolved name "nope"`)
}

func TestCompileAssignmentToUnassignableExpressionIsFatal(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "test.scr", []byte("1 = 2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignment to unassignable expression")
}

func TestCompileNestedFuncDoesNotSeeOuterLocals(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "test.scr", []byte(`
var x = 1
var f = func() { return x }
return f()
`))
	require.Error(t, err, "a func literal must not resolve an enclosing scope's locals")
	assert.Contains(t, err.Error(), `unresolved name "x"`)
}

func TestCompileErrorMessageIncludesFileAndLine(t *testing.T) {
	heap := NewHeap(0)
	_, err := Compile(heap, "myfile.scr", []byte("print 1\nprint nope"))
	require.Error(t, err)
	assert.Equal(t, `myfile.scr:2: unresolved name "nope"`, err.Error())
}

func TestCompileParenthesizationDoesNotChangeEmittedOps(t *testing.T) {
	heap := NewHeap(0)
	plain, err := Compile(heap, "test.scr", []byte("return 1+2"))
	require.NoError(t, err)
	parens, err := Compile(heap, "test.scr", []byte("return (1+2)"))
	require.NoError(t, err)

	assert.Equal(t, len(plain.Ops()), len(parens.Ops()))
	for i := range plain.Ops() {
		assert.Equal(t, plain.Ops()[i].Opcode(), parens.Ops()[i].Opcode())
	}
}

func TestCompileLeftAssociativity(t *testing.T) {
	// 10-3-2 must mean (10-3)-2 == 5, not 10-(3-2) == 9; the compiler
	// recurses at prec+1 on the right operand to force this.
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte("return 10-3-2"))
	require.NoError(t, err)

	thread := heap.NewThread(structValue(heap.NewStruct()))
	v, err := thread.Call(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v.Number())
}
