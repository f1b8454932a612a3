package main

// entryState is the tri-state of a Struct hash-table slot.
type entryState uint8

const (
	entryEmpty entryState = iota
	entryOccupied
	entryTombstone
)

type structEntry struct {
	state entryState
	key   *String
	val   Value
}

// structInitialCap is the entry count a freshly allocated Struct starts
// with. Must be a power of two, so that probing can mask instead of mod.
const structInitialCap = 8

// Struct is an open-addressed hash table from String content to Value,
// keyed by byte content (not pointer identity — two distinct *String
// objects with equal bytes name the same field). Capacity is always a
// power of two; probing is linear, masking the index instead of using %.
//
// Grounded on original_source/source/sl/struct.h/struct.cpp, including its
// tombstone-aware `find`: a probe remembers the first tombstone it passes
// and, on reaching an Empty slot without finding the key, returns the
// tombstone instead (so a subsequent Set reuses the freed slot).
type Struct struct {
	object
	entries []structEntry
	load    int // count of non-empty (occupied + tombstone) entries
}

func (s *Struct) mask() uint32 { return uint32(len(s.entries) - 1) }

// find returns the index of key's slot: an Occupied slot if key is
// present, otherwise the first Tombstone seen along the probe (if any),
// otherwise the terminating Empty slot.
func (s *Struct) find(key *String) int {
	idx := key.Hash() & s.mask()
	tomb := -1
	for {
		e := &s.entries[idx]
		switch e.state {
		case entryTombstone:
			if tomb < 0 {
				tomb = int(idx)
			}
		case entryEmpty:
			if tomb >= 0 {
				return tomb
			}
			return int(idx)
		case entryOccupied:
			if e.key.equalBytes(key) {
				return int(idx)
			}
		}
		idx = (idx + 1) & s.mask()
	}
}

// Get returns the value stored for key, or Nil if key is absent.
func (s *Struct) Get(key *String) Value {
	e := &s.entries[s.find(key)]
	if e.state == entryOccupied {
		return e.val
	}
	return NilValue
}

// expand doubles (or otherwise resizes to newCap) the table, re-inserting
// occupied entries and discarding tombstones — load is recomputed from
// scratch as the occupied count only, same as the original's
// `Struct::expand`.
func (s *Struct) expand(newCap int) {
	old := s.entries
	s.entries = make([]structEntry, newCap)
	s.load = 0
	for i := range old {
		if old[i].state != entryOccupied {
			continue
		}
		idx := s.find(old[i].key)
		s.entries[idx] = structEntry{state: entryOccupied, key: old[i].key, val: old[i].val}
		s.load++
	}
}

// Set stores val for key, or deletes key if val is Nil. Growth
// happens eagerly, before the probe, when load exceeds 11/16 of capacity —
// the same three-term threshold (cap/2 + cap/8 + cap/16) as the original,
// computed the same way to avoid rounding differently than it does.
func (s *Struct) Set(key *String, val Value) {
	if val.IsNil() {
		s.Remove(key)
		return
	}

	capacity := len(s.entries)
	threshold := capacity/2 + capacity/8 + capacity/16
	if s.load > threshold {
		s.expand(capacity * 2)
	}

	e := &s.entries[s.find(key)]
	if e.state != entryOccupied {
		if e.state == entryEmpty {
			s.load++ // a reused tombstone is already counted
		}
		e.state = entryOccupied
		e.key = key
	}
	e.val = val
}

// Remove deletes key by marking its slot a tombstone. load is left
// unchanged: a tombstone is still a non-empty slot that must not terminate
// a later probe.
func (s *Struct) Remove(key *String) {
	e := &s.entries[s.find(key)]
	if e.state == entryOccupied {
		e.state = entryTombstone
	}
}
