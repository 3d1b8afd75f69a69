package collab

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryIdentifierTracker is an in-memory IdentifierTracker backed by a
// roaring bitmap of deleted point ids and a monotonic id allocator.
// It is the reference collaborator exercised by build/update tests;
// production deployments back this with a write-ahead log or a
// persistent id map.
type MemoryIdentifierTracker struct {
	mu      sync.RWMutex
	deleted *roaring.Bitmap
	nextID  uint32
	total   int
}

// NewMemoryIdentifierTracker returns an empty tracker.
func NewMemoryIdentifierTracker() *MemoryIdentifierTracker {
	return &MemoryIdentifierTracker{deleted: roaring.New()}
}

// Reserve allocates and returns the next point id.
func (t *MemoryIdentifierTracker) Reserve() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.total++
	return id
}

// Track records id as alive without allocating a new one, advancing
// the internal allocator past id if needed. Used when loading points
// whose ids are assigned externally (e.g. read back from a source
// file) rather than handed out by Reserve. Ids the allocator skips over
// this way are put in the deleted bitmap, so they are not alive (and
// DeletedPoint reports them) until they are tracked themselves.
func (t *MemoryIdentifierTracker) Track(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id >= t.nextID {
		t.deleted.AddRange(uint64(t.nextID), uint64(id))
		t.nextID = id + 1
	}
	t.deleted.Remove(id)
	t.total++
}

// Delete tombstones id.
func (t *MemoryIdentifierTracker) Delete(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deleted.CheckedAdd(id) {
		t.total--
	}
}

// IterAliveIDs implements IdentifierTracker.
func (t *MemoryIdentifierTracker) IterAliveIDs() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]uint32, 0, t.total)
	for id := uint32(0); id < t.nextID; id++ {
		if !t.deleted.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// AvailablePointCount implements IdentifierTracker.
func (t *MemoryIdentifierTracker) AvailablePointCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// DeletedPoint implements IdentifierTracker.
func (t *MemoryIdentifierTracker) DeletedPoint(id uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.deleted.Contains(id)
}
