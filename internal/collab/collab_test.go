package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

func TestMemoryIdentifierTrackerReserveAndDelete(t *testing.T) {
	tr := NewMemoryIdentifierTracker()
	a := tr.Reserve()
	b := tr.Reserve()
	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), b)
	assert.Equal(t, 2, tr.AvailablePointCount())

	tr.Delete(a)
	assert.True(t, tr.DeletedPoint(a))
	assert.Equal(t, 1, tr.AvailablePointCount())
	assert.Equal(t, []uint32{b}, tr.IterAliveIDs())
}

func TestMemoryIdentifierTrackerTrackAdvancesAllocator(t *testing.T) {
	tr := NewMemoryIdentifierTracker()
	tr.Track(5)
	assert.Equal(t, uint32(6), tr.Reserve())
	assert.Equal(t, 2, tr.AvailablePointCount())
	assert.ElementsMatch(t, []uint32{5, 6}, tr.IterAliveIDs())
}

func TestMemoryVectorStorageMissingVector(t *testing.T) {
	s := NewMemoryVectorStorage()
	_, err := s.GetVector(42)
	require.Error(t, err)
	assert.Equal(t, sdxerrors.ErrCodeMissingVector, sdxerrors.GetCode(err))
}

func TestMemoryVectorStorageRawScorerMatchesDot(t *testing.T) {
	s := NewMemoryVectorStorage()
	v1, _ := sparse.New([]uint32{1, 2, 3}, []float32{1, 2, 3})
	v2, _ := sparse.New([]uint32{2, 3, 4}, []float32{2, 3, 4})
	s.Put(1, v1)
	s.Put(2, v2)

	q, _ := sparse.New([]uint32{1, 2, 3}, []float32{1, 2, 3})
	scorer := s.RawScorer(q)
	top := scorer.PeekTop([]uint32{1, 2}, 2)

	require.Len(t, top, 2)
	assert.Equal(t, uint32(1), top[0].RecordID)
	assert.Equal(t, float32(14.0), top[0].Score)
	assert.Equal(t, uint32(2), top[1].RecordID)
	assert.Equal(t, float32(13.0), top[1].Score)
}

func TestMemoryPayloadIndexFieldEquals(t *testing.T) {
	p := NewMemoryPayloadIndex()
	p.Set(1, "lang", "go")
	p.Set(2, "lang", "rust")
	p.Set(3, "lang", "go")

	filter := FieldEquals{Field: "lang", Value: "go"}
	card := p.EstimateCardinality(filter)
	assert.Equal(t, 2, card.Max)

	points := p.QueryPoints(filter)
	assert.ElementsMatch(t, []uint32{1, 3}, points)

	ctx := p.FilterContextFor(filter)
	assert.True(t, ctx.Check(1))
	assert.False(t, ctx.Check(2))
}

func TestAdjustToAvailableClampsUpperBound(t *testing.T) {
	c := Cardinality{Min: 5, Expected: 50, Max: 1000}
	adjusted := AdjustToAvailable(c, 100, 80)
	assert.Equal(t, 80, adjusted.Max)
	assert.LessOrEqual(t, adjusted.Expected, adjusted.Max)
}
