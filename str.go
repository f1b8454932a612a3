package main

// String is an immutable byte sequence with a cached content hash.
// Construction is copy-on-create (Heap.NewString copies its input); no
// interning is performed — equality always inspects bytes, so two
// distinct String objects may legitimately hold identical content.
//
// Grounded on original_source/source/sl/val.h's `struct String` (a
// length-prefixed, NUL-terminated char buffer). Go strings don't need the
// trailing NUL the C struct keeps for printf("%s", ...) interop; length and
// equality here depend only on the byte slice.
type String struct {
	object
	bytes  []byte
	hash   uint32
	hashed bool
}

// Len returns the string's length in bytes.
func (s *String) Len() int { return len(s.bytes) }

// Bytes returns the string's content. Callers must not mutate it.
func (s *String) Bytes() []byte { return s.bytes }

// Hash returns the string's content hash, computed once and cached.
//
// The mix is a bespoke FNV-like function: seed from the length, fold each
// byte in with `h ^= (h<<5)+(h>>2)+byte`, then finalize by multiplying by
// the golden-ratio constant 0x9E3779B9. It is not a library hash (not real
// FNV), so it is implemented directly rather than substituted with a
// hash/fnv call.
func (s *String) Hash() uint32 {
	if !s.hashed {
		s.hash = hashBytes(s.bytes)
		s.hashed = true
	}
	return s.hash
}

func hashBytes(b []byte) uint32 {
	h := uint32(len(b))
	for _, c := range b {
		h ^= (h << 5) + (h >> 2) + uint32(c)
	}
	h *= 0x9E3779B9
	return h
}

// equalBytes reports whether s and o hold identical content.
func (s *String) equalBytes(o *String) bool {
	if s == o {
		return true
	}
	if len(s.bytes) != len(o.bytes) {
		return false
	}
	for i := range s.bytes {
		if s.bytes[i] != o.bytes[i] {
			return false
		}
	}
	return true
}
