package invertedindex

import (
	"sort"

	"github.com/ologbonowiwi/sparsedex/internal/postings"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

// Ram is the authoritative, mutable inverted-index variant: a dense map
// from dimension id to posting list.
type Ram struct {
	lists map[uint32]*postings.List
	// priorDims records, per record id, the dimensions last written for
	// it. Upsert diffs against this set to remove postings for
	// dimensions the new vector no longer covers.
	priorDims map[uint32][]uint32
}

// NewRam returns an empty ram-variant inverted index.
func NewRam() *Ram {
	return &Ram{
		lists:     make(map[uint32]*postings.List),
		priorDims: make(map[uint32][]uint32),
	}
}

// Get returns the posting list for dim, or (nil, false) if dim has no
// elements. No empty posting list is ever stored: Upsert drops a list
// once its last element is removed.
func (r *Ram) Get(dim uint32) (*postings.List, bool) {
	l, ok := r.lists[dim]
	if !ok || l.Len() == 0 {
		return nil, false
	}
	return l, true
}

// Files reports no backing files: the ram variant is purely in-memory.
func (r *Ram) Files() []string { return nil }

// Dims returns every dimension id with a non-empty posting list, in
// ascending order.
func (r *Ram) Dims() []uint32 {
	dims := make([]uint32, 0, len(r.lists))
	for d, l := range r.lists {
		if l.Len() > 0 {
			dims = append(dims, d)
		}
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })
	return dims
}

// Upsert writes vec's (dimension, weight) pairs into their posting
// lists, replacing any prior weight for recordID, and removes recordID
// from the posting lists of dimensions it previously occupied but no
// longer does.
func (r *Ram) Upsert(recordID uint32, vec sparse.Vector) {
	newDims := vec.Indices()
	newDimSet := make(map[uint32]struct{}, len(newDims))

	for i, d := range newDims {
		l, ok := r.lists[d]
		if !ok {
			l = postings.New()
			r.lists[d] = l
		}
		l.InsertOrReplace(recordID, vec.Values()[i])
		newDimSet[d] = struct{}{}
	}

	for _, d := range r.priorDims[recordID] {
		if _, stillPresent := newDimSet[d]; stillPresent {
			continue
		}
		if l, ok := r.lists[d]; ok {
			l.Remove(recordID)
			if l.Len() == 0 {
				delete(r.lists, d)
			}
		}
	}

	r.priorDims[recordID] = append([]uint32(nil), newDims...)
}

// ToFiles materializes this ram index onto disk as the Mmap variant's
// file layout, without opening it.
func (r *Ram) ToFiles(path string) error {
	return writeIndexFiles(path, r.Dims(), r.lists)
}
