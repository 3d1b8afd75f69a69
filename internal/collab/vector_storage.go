package collab

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

// MemoryVectorStorage is an in-memory VectorStorage over a map of raw
// sparse vectors, with a roaring bitmap of tombstoned vector ids.
type MemoryVectorStorage struct {
	mu      sync.RWMutex
	vectors map[uint32]sparse.Vector
	deleted *roaring.Bitmap
}

// NewMemoryVectorStorage returns an empty store.
func NewMemoryVectorStorage() *MemoryVectorStorage {
	return &MemoryVectorStorage{
		vectors: make(map[uint32]sparse.Vector),
		deleted: roaring.New(),
	}
}

// Put stores or replaces the vector for id.
func (s *MemoryVectorStorage) Put(id uint32, v sparse.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = v
}

// Delete tombstones id's vector without removing the underlying data.
func (s *MemoryVectorStorage) Delete(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted.Add(id)
}

// GetVector implements VectorStorage.
func (s *MemoryVectorStorage) GetVector(id uint32) (sparse.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vectors[id]
	if !ok {
		return sparse.Vector{}, sdxerrors.MissingVector(id)
	}
	return v, nil
}

// DeletedVector implements VectorStorage.
func (s *MemoryVectorStorage) DeletedVector(id uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleted.Contains(id)
}

// AvailableVectorCount implements VectorStorage.
func (s *MemoryVectorStorage) AvailableVectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors) - int(s.deleted.GetCardinality())
}

// RawScorer implements VectorStorage by returning a brute-force scorer
// bound to query; this is the "raw scorer" the plain path depends on
// (any implementation must keep its arithmetic bit-compatible with
// Vector.Dot for property 5 to hold, which this does by construction).
func (s *MemoryVectorStorage) RawScorer(query sparse.Vector) Scorer {
	return &memoryScorer{storage: s, query: query}
}

type memoryScorer struct {
	storage *MemoryVectorStorage
	query   sparse.Vector
}

// PeekTop implements Scorer.
func (sc *memoryScorer) PeekTop(ids []uint32, k int) []sparse.ScoredID {
	sc.storage.mu.RLock()
	defer sc.storage.mu.RUnlock()

	scored := make([]sparse.ScoredID, 0, len(ids))
	for _, id := range ids {
		v, ok := sc.storage.vectors[id]
		if !ok || sc.storage.deleted.Contains(id) {
			continue
		}
		scored = append(scored, sparse.ScoredID{RecordID: id, Score: sc.query.Dot(v)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].RecordID < scored[j].RecordID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
