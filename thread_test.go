package main

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sl-lang/sl/internal/flushio"
)

// runScript compiles and runs src, returning everything it printed.
func runScript(t *testing.T, src string) string {
	t.Helper()
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(src))
	require.NoError(t, err)

	var buf strings.Builder
	thread := heap.NewThread(structValue(heap.NewStruct()))
	thread.SetOutput(flushio.NewWriteFlusher(&buf))

	_, err = thread.Call(context.Background(), fn)
	require.NoError(t, err)
	require.NoError(t, thread.Flush())
	return buf.String()
}

func TestGoldenScripts(t *testing.T) {
	scripts, err := filepath.Glob(filepath.Join("testdata", "*.scr"))
	require.NoError(t, err)
	require.NotEmpty(t, scripts)

	for _, scrPath := range scripts {
		scrPath := scrPath
		name := strings.TrimSuffix(filepath.Base(scrPath), ".scr")
		t.Run(name, func(t *testing.T) {
			src, err := ioutil.ReadFile(scrPath)
			require.NoError(t, err)

			wantPath := strings.TrimSuffix(scrPath, ".scr") + ".out"
			want, err := ioutil.ReadFile(wantPath)
			require.NoError(t, err)

			got := runScript(t, string(src))
			assert.Equal(t, string(want), got)
		})
	}
}

func TestThreadCallStackEmptyAfterReturn(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte("return 1+1"))
	require.NoError(t, err)

	thread := heap.NewThread(structValue(heap.NewStruct()))
	v, err := thread.Call(context.Background(), fn)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.Number())
	assert.Empty(t, thread.stack)
	assert.Empty(t, thread.frames)
}

func TestThreadArityNormalization(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  string
		want float64
	}{
		{"fewer args padded with nil", `
var f = func(a, b) {
  if b == nil { return -1 }
  return a+b
}
return f(1)
`, -1},
		{"extra args dropped", `
var f = func(a) { return a }
return f(1, 2, 3)
`, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			heap := NewHeap(0)
			fn, err := Compile(heap, "test.scr", []byte(tc.src))
			require.NoError(t, err)
			thread := heap.NewThread(structValue(heap.NewStruct()))
			v, err := thread.Call(context.Background(), fn)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Number())
		})
	}
}

func TestThreadContextCancellation(t *testing.T) {
	heap := NewHeap(0)
	fn, err := Compile(heap, "test.scr", []byte(`
var i = 0
while true { i = i+1 }
return i
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	thread := heap.NewThread(structValue(heap.NewStruct()))
	_, err = thread.Call(ctx, fn)
	assert.Error(t, err)
}

func TestThreadHeapLimit(t *testing.T) {
	// limit covers the Func from Compile, the global Struct, the Thread
	// itself, and one array literal — the second array literal exceeds it.
	heap := NewHeap(4)
	fn, err := Compile(heap, "test.scr", []byte(`
var a = [1]
var b = [2]
var c = [3]
return nil
`))
	require.NoError(t, err)

	thread := heap.NewThread(structValue(heap.NewStruct()))
	_, err = thread.Call(context.Background(), fn)
	assert.Error(t, err)
	var he heapLimitError
	assert.ErrorAs(t, err, &he)
}
