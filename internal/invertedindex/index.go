// Package invertedindex implements the inverted index: a mapping from
// dimension id to posting list, with a mutable Ram variant and an
// immutable, memory-mapped Mmap variant sharing a common read contract.
package invertedindex

import (
	"os"

	"github.com/ologbonowiwi/sparsedex/internal/postings"
)

// InvertedIndex is the read contract shared by both variants.
type InvertedIndex interface {
	// Get returns the posting list for dim, or (nil, false) if absent.
	Get(dim uint32) (*postings.List, bool)
	// Files enumerates the paths backing this index's persisted form.
	Files() []string
}

// Open loads the mmap variant from path if a header file is present,
// otherwise returns a fresh, empty Ram variant. This mirrors the
// open(path) contract.
func Open(path string) (InvertedIndex, error) {
	if _, err := os.Stat(headerPath(path)); err == nil {
		return openMmap(path)
	}
	return NewRam(), nil
}

// FromRamIndex materializes ram as the on-disk, memory-mapped variant at
// path and returns it opened for reading.
func FromRamIndex(ram *Ram, path string) (InvertedIndex, error) {
	return fromRam(ram, path)
}
