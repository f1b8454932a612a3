// Package arena provides an append-only, paged object table that hands out
// stable, monotonically increasing addresses to arbitrary objects.
//
// The same paging discipline (bump-allocate into a growable page,
// start a new page when the current one fills, track a Limit past which
// allocation errors out) is generalized from "page of int" to "page of
// object", since this interpreter's heap never stores raw machine words —
// it stores *String, *Array, *Struct, *Func, *Thread objects that live
// until the arena itself is discarded: once allocated, an object lives
// until heap teardown, with no reclamation.
package arena

import "fmt"

// DefaultPageSize is used by Pages whose PageSize field is left at zero.
const DefaultPageSize = 256

// LimitError indicates that an allocation would exceed Pages.Limit.
type LimitError struct {
	Addr  uint
	Limit uint
}

func (e LimitError) Error() string {
	return fmt.Sprintf("arena: allocation at @%v exceeds limit %v", e.Addr, e.Limit)
}

// Pages is a paged, append-only table of objects. Addresses start at 0 and
// increase by exactly one per Alloc call; once assigned, an address's page
// never moves (no compaction), so a held address remains valid for the life
// of the Pages value — which is what gives heap objects their stable
// reference identity over the object's lifetime.
type Pages struct {
	// PageSize is the object count per page. Zero means DefaultPageSize.
	PageSize uint
	// Limit bounds the number of objects the arena will hold; zero means
	// unbounded. Exceeding it returns a LimitError instead of allocating.
	Limit uint

	pages [][]interface{}
	bases []uint
}

// Len returns one past the highest address allocated so far.
func (p *Pages) Len() uint {
	if n := len(p.bases); n > 0 {
		return p.bases[n-1] + uint(len(p.pages[n-1]))
	}
	return 0
}

// Alloc appends obj to the arena and returns its new, permanent address.
func (p *Pages) Alloc(obj interface{}) (uint, error) {
	addr := p.Len()
	if lim := p.Limit; lim != 0 && addr >= lim {
		return 0, LimitError{addr, lim}
	}

	pageSize := p.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	n := len(p.pages)
	if n == 0 || uint(len(p.pages[n-1])) >= pageSize {
		p.bases = append(p.bases, addr)
		p.pages = append(p.pages, make([]interface{}, 0, pageSize))
		n++
	}
	p.pages[n-1] = append(p.pages[n-1], obj)
	return addr, nil
}

// At returns the object allocated at addr, or nil if addr was never
// allocated.
func (p *Pages) At(addr uint) interface{} {
	pageID := p.findPage(addr)
	if pageID < 0 {
		return nil
	}
	base := p.bases[pageID]
	page := p.pages[pageID]
	if i := addr - base; i < uint(len(page)) {
		return page[i]
	}
	return nil
}

// Range calls f for every allocated object in address order, stopping
// early if f returns false. Used by the CLI's bytecode dumper to walk live
// heap objects.
func (p *Pages) Range(f func(addr uint, obj interface{}) bool) {
	for pageID, page := range p.pages {
		base := p.bases[pageID]
		for i, obj := range page {
			if !f(base+uint(i), obj) {
				return
			}
		}
	}
}

// findPage returns the index of the page containing addr, via binary
// search over page base addresses (the same bisection PagedCore.findPage
// performed over an int-keyed address space).
func (p *Pages) findPage(addr uint) int {
	i, j := 0, len(p.bases)
	for i < j {
		h := (i + j) / 2
		if p.bases[h] <= addr {
			i = h + 1
		} else {
			j = h
		}
	}
	return i - 1
}
