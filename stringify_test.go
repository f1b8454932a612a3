package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToStringNumberFormatting(t *testing.T) {
	heap := NewHeap(0)
	for _, tc := range []struct {
		name string
		n    float64
		want string
	}{
		{"integer-valued float has no decimal point", 7, "7"},
		{"trailing zeros trimmed", 0.5, "0.5"},
		{"fourteen significant digits", 1.0 / 3.0, "0.33333333333333"},
		{"negative", -42, "-42"},
		{"large magnitude switches to exponential", 1e21, "1e+21"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, toString(heap, numberValue(tc.n)))
		})
	}
}

func TestToStringRoundTrip(t *testing.T) {
	// toString(toNumber(toString(n))) == toString(n) for finite numbers
	// representable in 14 significant digits.
	heap := NewHeap(0)
	for _, n := range []float64{0, 1, -1, 3.14159265, 2, 100000, 123456789.125} {
		first := toString(heap, numberValue(n))
		var reparsed float64
		_, err := fmt.Sscanf(first, "%g", &reparsed)
		assert.NoError(t, err)
		second := toString(heap, numberValue(reparsed))
		assert.Equal(t, first, second)
	}
}

func TestToStringNilAndString(t *testing.T) {
	heap := NewHeap(0)
	assert.Equal(t, "nil", toString(heap, Value{}))
	s := heap.NewString([]byte("hello"))
	assert.Equal(t, "hello", toString(heap, stringValue(s)))
}

func TestToStringHeapReferencesUseArenaAddress(t *testing.T) {
	heap := NewHeap(0)
	a := heap.NewArray(0)
	assert.Equal(t, fmt.Sprintf("array@0x%x", a.Addr()), toString(heap, arrayValue(a)))

	s := heap.NewStruct()
	assert.Equal(t, fmt.Sprintf("struct@0x%x", s.Addr()), toString(heap, structValue(s)))
}

func TestToHeapStringReusesExistingStringWithoutCopy(t *testing.T) {
	heap := NewHeap(0)
	s := heap.NewString([]byte("x"))
	got := toHeapString(heap, stringValue(s))
	assert.Same(t, s, got)
}

func TestToHeapStringAllocatesForNonString(t *testing.T) {
	heap := NewHeap(0)
	got := toHeapString(heap, numberValue(3))
	assert.Equal(t, "3", string(got.Bytes()))
}
