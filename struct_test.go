package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructSetGetRemove(t *testing.T) {
	heap := NewHeap(0)
	s := heap.NewStruct()
	k := heap.NewString([]byte("x"))

	assert.True(t, s.Get(k).IsNil())

	s.Set(k, numberValue(1))
	assert.Equal(t, float64(1), s.Get(k).Number())

	// setting with an equal-content but distinct *String still finds it.
	k2 := heap.NewString([]byte("x"))
	assert.Equal(t, float64(1), s.Get(k2).Number())

	s.Set(k, NilValue) // assigning Nil deletes
	assert.True(t, s.Get(k).IsNil())
}

func TestStructOtherKeysSurviveInsertAndDelete(t *testing.T) {
	heap := NewHeap(0)
	s := heap.NewStruct()
	a := heap.NewString([]byte("a"))
	b := heap.NewString([]byte("b"))
	c := heap.NewString([]byte("c"))

	s.Set(a, numberValue(1))
	s.Set(b, numberValue(2))
	s.Set(c, numberValue(3))

	s.Set(b, NilValue) // delete b

	assert.Equal(t, float64(1), s.Get(a).Number())
	assert.True(t, s.Get(b).IsNil())
	assert.Equal(t, float64(3), s.Get(c).Number())
}

func TestStructGrowsAndPreservesEntries(t *testing.T) {
	heap := NewHeap(0)
	s := heap.NewStruct()

	const n = 64 // forces several doublings past structInitialCap (8)
	keys := make([]*String, n)
	for i := 0; i < n; i++ {
		keys[i] = heap.NewString([]byte{byte('a' + i%26), byte(i)})
		s.Set(keys[i], numberValue(float64(i)))
	}

	require.True(t, len(s.entries) > structInitialCap)

	for i, k := range keys {
		assert.Equal(t, float64(i), s.Get(k).Number())
	}
}

func TestStructTombstoneDoesNotBreakProbeChain(t *testing.T) {
	heap := NewHeap(0)
	s := heap.NewStruct()

	// find two keys that collide in the initial 8-slot table, so deleting
	// the first tests that probing past its tombstone still finds the
	// second.
	var k1, k2 *String
	k1 = heap.NewString([]byte{0})
	for i := 1; i < 4096; i++ {
		cand := heap.NewString([]byte{byte(i), byte(i >> 8)})
		if cand.Hash()&uint32(structInitialCap-1) == k1.Hash()&uint32(structInitialCap-1) {
			k2 = cand
			break
		}
	}
	require.NotNil(t, k2, "expected to find a colliding key within the initial table")

	s.Set(k1, numberValue(1))
	s.Set(k2, numberValue(2))
	s.Set(k1, NilValue)

	assert.True(t, s.Get(k1).IsNil())
	assert.Equal(t, float64(2), s.Get(k2).Number())
}
