// Package postings implements the per-dimension posting list that backs
// the inverted index: an ordered sequence of (record id, weight) pairs
// for a single dimension.
package postings

import "sort"

// Element is one (record id, weight) entry in a posting list.
type Element struct {
	RecordID uint32
	Weight   float32
}

// List is a sequence of Elements ordered by RecordID ascending, with no
// duplicate RecordID. It memoizes MaxWeight so the search context's
// pruning bound never needs to rescan the list.
type List struct {
	elements  []Element
	maxWeight float32
}

// New returns an empty posting list.
func New() *List {
	return &List{}
}

// Len returns the number of elements.
func (l *List) Len() int { return len(l.elements) }

// MaxWeight returns the maximum weight over all elements, or 0 for an
// empty list.
func (l *List) MaxWeight() float32 { return l.maxWeight }

// Elements returns the list's elements in ascending RecordID order. The
// returned slice must not be mutated by the caller.
func (l *List) Elements() []Element { return l.elements }

// InsertOrReplace inserts (recordID, weight) maintaining ascending order,
// or replaces the weight of an existing entry for recordID. Recomputes
// MaxWeight as needed: replacing the element that carries the current
// maximum with a weight that does not exceed it rescans the whole list;
// an insert, or any other replace, only grows it via max(current, weight).
func (l *List) InsertOrReplace(recordID uint32, weight float32) {
	n := len(l.elements)
	if n == 0 || recordID > l.elements[n-1].RecordID {
		// Common bulk-build case: strictly increasing record ids.
		l.elements = append(l.elements, Element{RecordID: recordID, Weight: weight})
		if weight > l.maxWeight || n == 0 {
			l.maxWeight = weight
		}
		return
	}

	idx := sort.Search(n, func(i int) bool { return l.elements[i].RecordID >= recordID })
	if idx < n && l.elements[idx].RecordID == recordID {
		replacedMax := l.elements[idx].Weight == l.maxWeight
		l.elements[idx].Weight = weight
		if weight > l.maxWeight {
			l.maxWeight = weight
		} else if replacedMax {
			l.recomputeMaxWeight()
		}
		return
	}

	l.elements = append(l.elements, Element{})
	copy(l.elements[idx+1:], l.elements[idx:])
	l.elements[idx] = Element{RecordID: recordID, Weight: weight}
	if weight > l.maxWeight {
		l.maxWeight = weight
	}
}

// Remove deletes recordID from the list if present, recomputing
// MaxWeight if the removed element carried it.
func (l *List) Remove(recordID uint32) {
	n := len(l.elements)
	idx := sort.Search(n, func(i int) bool { return l.elements[i].RecordID >= recordID })
	if idx >= n || l.elements[idx].RecordID != recordID {
		return
	}
	removedMax := l.elements[idx].Weight == l.maxWeight
	l.elements = append(l.elements[:idx], l.elements[idx+1:]...)
	if removedMax {
		l.recomputeMaxWeight()
	}
}

func (l *List) recomputeMaxWeight() {
	var m float32
	for _, e := range l.elements {
		if e.Weight > m {
			m = e.Weight
		}
	}
	l.maxWeight = m
}

// Cursor is a lazy finite forward iterator over a List's elements with
// RecordID >= the bound it was created from.
type Cursor struct {
	elements []Element
	pos      int
}

// IterFrom returns a Cursor positioned at the first element with
// RecordID >= lowerBound.
func (l *List) IterFrom(lowerBound uint32) *Cursor {
	pos := sort.Search(len(l.elements), func(i int) bool { return l.elements[i].RecordID >= lowerBound })
	return &Cursor{elements: l.elements, pos: pos}
}

// Peek returns the element at the cursor without advancing it, and
// whether one exists.
func (c *Cursor) Peek() (Element, bool) {
	if c.pos >= len(c.elements) {
		return Element{}, false
	}
	return c.elements[c.pos], true
}

// Advance moves the cursor forward by one element.
func (c *Cursor) Advance() {
	c.pos++
}

// Exhausted reports whether the cursor has no more elements.
func (c *Cursor) Exhausted() bool {
	return c.pos >= len(c.elements)
}
