package postings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertOrReplaceMaintainsOrderAndUniqueness(t *testing.T) {
	l := New()
	l.InsertOrReplace(5, 1.0)
	l.InsertOrReplace(1, 2.0)
	l.InsertOrReplace(3, 3.0)
	l.InsertOrReplace(3, 4.0) // replace

	require.Equal(t, 3, l.Len())
	ids := make([]uint32, 0, 3)
	for _, e := range l.Elements() {
		ids = append(ids, e.RecordID)
	}
	assert.Equal(t, []uint32{1, 3, 5}, ids)

	for _, e := range l.Elements() {
		if e.RecordID == 3 {
			assert.Equal(t, float32(4.0), e.Weight)
		}
	}
}

func TestMaxWeightTracksInsertsAndReplaces(t *testing.T) {
	l := New()
	l.InsertOrReplace(1, 5.0)
	l.InsertOrReplace(2, 9.0)
	l.InsertOrReplace(3, 1.0)
	assert.Equal(t, float32(9.0), l.MaxWeight())

	// Replacing the max with something smaller forces a rescan.
	l.InsertOrReplace(2, 0.5)
	assert.Equal(t, float32(5.0), l.MaxWeight())
}

func TestRemoveRecomputesMaxWeight(t *testing.T) {
	l := New()
	l.InsertOrReplace(1, 5.0)
	l.InsertOrReplace(2, 9.0)
	l.Remove(2)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, float32(5.0), l.MaxWeight())

	l.Remove(1)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, float32(0), l.MaxWeight())
}

func TestIterFromSkipsBelowBound(t *testing.T) {
	l := New()
	for _, id := range []uint32{1, 3, 5, 7} {
		l.InsertOrReplace(id, float32(id))
	}

	c := l.IterFrom(4)
	var seen []uint32
	for !c.Exhausted() {
		e, ok := c.Peek()
		require.True(t, ok)
		seen = append(seen, e.RecordID)
		c.Advance()
	}
	assert.Equal(t, []uint32{5, 7}, seen)
}

func TestIterFromBeyondEndIsImmediatelyExhausted(t *testing.T) {
	l := New()
	l.InsertOrReplace(1, 1.0)
	c := l.IterFrom(99)
	assert.True(t, c.Exhausted())
	_, ok := c.Peek()
	assert.False(t, ok)
}
