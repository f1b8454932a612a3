package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpHeapCoversEveryObjectKind(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(`
var a = [1, 2]
var s = { k = "v" }
print a[0]
`))
	require.NoError(t, err)

	global := structValue(heap.NewStruct())
	thread := heap.NewThread(global)
	_, err = thread.Call(context.Background(), fn)
	require.NoError(t, err)

	var buf bytes.Buffer
	dumpHeap(heap, &buf)

	out := buf.String()
	assert.Contains(t, out, "# Heap Dump")
	assert.Contains(t, out, "func params=0 locals=2 consts=")
	assert.Contains(t, out, "string \"v\"")
	assert.Contains(t, out, "array len=2")
	assert.Contains(t, out, "struct load=1")
	assert.Contains(t, out, "thread frames=0 stack=0")
}
