package invertedindex

import (
	"os"

	"github.com/blevesearch/mmap-go"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/internal/lock"
	"github.com/ologbonowiwi/sparsedex/internal/postings"
)

// Mmap is a read-only inverted-index variant materialized from a Ram
// index by memory-mapping its postings block. Only Get, Files, and
// Close are supported; mutation requires the Ram variant.
type Mmap struct {
	path    string
	file    *os.File
	data    mmap.MMap
	offsets map[uint32]offsetEntry
}

// openMmap opens an existing on-disk inverted index for reading.
func openMmap(path string) (*Mmap, error) {
	h, err := readHeader(headerPath(path))
	if err != nil {
		return nil, err
	}
	entries, err := readOffsets(offsetsPath(path), h.DimCount)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(postingsPath(path))
	if err != nil {
		return nil, sdxerrors.IndexIOError("open postings file", err)
	}
	var data mmap.MMap
	if h.TotalElements > 0 {
		data, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			_ = f.Close()
			return nil, sdxerrors.IndexIOError("mmap postings file", err)
		}
	}

	offsets := make(map[uint32]offsetEntry, len(entries))
	for _, e := range entries {
		offsets[e.DimID] = e
	}

	return &Mmap{path: path, file: f, data: data, offsets: offsets}, nil
}

// fromRam materializes ram onto disk at path and opens the result,
// serializing concurrent builders across processes via an exclusive
// file lock (mutations require exclusive access).
func fromRam(ram *Ram, path string) (*Mmap, error) {
	buildLock := lock.New(buildLockPath(path))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, sdxerrors.IndexIOError("create index directory", err)
	}
	if err := buildLock.Lock(); err != nil {
		return nil, sdxerrors.IndexIOError("acquire build lock", err)
	}
	defer func() { _ = buildLock.Unlock() }()

	if err := ram.ToFiles(path); err != nil {
		return nil, err
	}
	return openMmap(path)
}

// Get decodes and returns the posting list for dim, materializing it
// from the memory-mapped postings block on every call (the mmap variant
// is read-only and never caches decoded lists).
func (m *Mmap) Get(dim uint32) (*postings.List, bool) {
	e, ok := m.offsets[dim]
	if !ok || e.Length == 0 {
		return nil, false
	}
	elements, err := decodePostings(m.data, e.Offset, e.Length)
	if err != nil {
		return nil, false
	}
	l := postings.New()
	for _, el := range elements {
		l.InsertOrReplace(el.RecordID, el.Weight)
	}
	return l, true
}

// Files enumerates every file backing this index, for snapshotting.
func (m *Mmap) Files() []string {
	return []string{headerPath(m.path), offsetsPath(m.path), postingsPath(m.path)}
}

// Close unmaps and closes the backing postings file.
func (m *Mmap) Close() error {
	var err error
	if m.data != nil {
		err = m.data.Unmap()
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}
