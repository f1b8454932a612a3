package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueEquals(t *testing.T) {
	heap := NewHeap(0)
	a := heap.NewArray(1)
	b := heap.NewArray(1)

	for _, tc := range []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil == nil", NilValue, NilValue, true},
		{"0 == 0", numberValue(0), numberValue(0), true},
		{"1 != 2", numberValue(1), numberValue(2), false},
		{"same bytes strings equal", stringValue(heap.NewString([]byte("hi"))), stringValue(heap.NewString([]byte("hi"))), true},
		{"different bytes strings unequal", stringValue(heap.NewString([]byte("hi"))), stringValue(heap.NewString([]byte("bye"))), false},
		{"different kinds unequal", numberValue(0), NilValue, false},
		{"distinct arrays by identity", arrayValue(a), arrayValue(b), false},
		{"same array identity", arrayValue(a), arrayValue(a), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Equals(tc.b))
			assert.Equal(t, tc.want, tc.b.Equals(tc.a), "Equals must be symmetric")
		})
	}
}

func TestValueAsBool(t *testing.T) {
	heap := NewHeap(0)
	for _, tc := range []struct {
		name string
		v    Value
		want bool
	}{
		{"nil", NilValue, false},
		{"zero", numberValue(0), false},
		{"nonzero", numberValue(1), true},
		{"negative", numberValue(-1), true},
		{"empty string is truthy", stringValue(heap.NewString(nil)), true},
		{"array is truthy", arrayValue(heap.NewArray(0)), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.AsBool())
		})
	}
}
