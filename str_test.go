package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringEqualBytes(t *testing.T) {
	heap := NewHeap(0)
	a := heap.NewString([]byte("hello"))
	b := heap.NewString([]byte("hello"))
	c := heap.NewString([]byte("world"))

	assert.True(t, a.equalBytes(b))
	assert.True(t, b.equalBytes(a))
	assert.False(t, a.equalBytes(c))
	assert.True(t, a.equalBytes(a))
}

func TestStringHashMatchesEqualContent(t *testing.T) {
	heap := NewHeap(0)
	a := heap.NewString([]byte("the quick brown fox"))
	b := heap.NewString([]byte("the quick brown fox"))

	assert.Equal(t, a.Hash(), b.Hash())
	assert.True(t, a.equalBytes(b))
}

func TestStringHashIsCached(t *testing.T) {
	s := NewHeap(0).NewString([]byte("cached"))
	first := s.Hash()
	// mutate the cache field directly to prove the second call reuses it
	// rather than recomputing from s.bytes.
	s.hash = first + 1
	assert.Equal(t, first+1, s.Hash())
}

func TestStringCopyOnCreate(t *testing.T) {
	heap := NewHeap(0)
	src := []byte("mutate me")
	s := heap.NewString(src)
	src[0] = 'X'
	assert.Equal(t, "mutate me", string(s.Bytes()))
}
