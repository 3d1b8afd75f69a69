package searchctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ologbonowiwi/sparsedex/internal/invertedindex"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

func vec(t *testing.T, indices []uint32, values []float32) sparse.Vector {
	t.Helper()
	v, err := sparse.New(indices, values)
	require.NoError(t, err)
	return v
}

func alive(uint32) bool { return true }

// buildOverlappingIndex builds two points whose sparse vectors share
// dimensions 2 and 3: point 1 is {1:1.0, 2:2.0, 3:3.0}, point 2 is
// {2:2.0, 3:3.0, 4:4.0}.
func buildOverlappingIndex(t *testing.T) invertedindex.InvertedIndex {
	t.Helper()
	r := invertedindex.NewRam()
	r.Upsert(1, vec(t, []uint32{1, 2, 3}, []float32{1.0, 2.0, 3.0}))
	r.Upsert(2, vec(t, []uint32{2, 3, 4}, []float32{2.0, 3.0, 4.0}))
	return r
}

func TestSearchExactDotProduct(t *testing.T) {
	idx := buildOverlappingIndex(t)
	q := vec(t, []uint32{1, 2, 3}, []float32{1, 2, 3})

	ctx := New(q, 2, idx)
	results, err := ctx.Search(nil, alive)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, uint32(1), results[0].RecordID)
	assert.Equal(t, float32(14.0), results[0].Score)
	assert.Equal(t, uint32(2), results[1].RecordID)
	assert.Equal(t, float32(13.0), results[1].Score)
}

func TestSearchDisjointDimensions(t *testing.T) {
	r := invertedindex.NewRam()
	r.Upsert(10, vec(t, []uint32{1}, []float32{1.0}))
	r.Upsert(20, vec(t, []uint32{2}, []float32{1.0}))

	q := vec(t, []uint32{30}, []float32{1.0})
	ctx := New(q, 2, r)
	results, err := ctx.Search(nil, alive)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFilterPrunes(t *testing.T) {
	idx := buildOverlappingIndex(t)
	q := vec(t, []uint32{1, 2, 3}, []float32{1, 2, 3})

	ctx := New(q, 2, idx)
	results, err := ctx.Search(nil, func(rid uint32) bool { return rid == 2 })
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, uint32(2), results[0].RecordID)
	assert.Equal(t, float32(13.0), results[0].Score)
}

func TestSearchUpsertReplaces(t *testing.T) {
	r := invertedindex.NewRam()
	r.Upsert(7, vec(t, []uint32{1}, []float32{1.0}))
	r.Upsert(7, vec(t, []uint32{2}, []float32{2.0}))

	q1 := vec(t, []uint32{1}, []float32{1.0})
	results, err := New(q1, 1, r).Search(nil, alive)
	require.NoError(t, err)
	assert.Empty(t, results)

	q2 := vec(t, []uint32{2}, []float32{1.0})
	results, err = New(q2, 1, r).Search(nil, alive)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(7), results[0].RecordID)
	assert.Equal(t, float32(2.0), results[0].Score)
}

func TestSearchCancellationBeforeFirstIteration(t *testing.T) {
	idx := buildOverlappingIndex(t)
	q := vec(t, []uint32{1, 2}, []float32{1, 1})

	var cancel Cancel
	cancel.Set()

	ctx := New(q, 2, idx)
	results, err := ctx.Search(&cancel, alive)
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestSearchResultsAreDeterministicAndSorted(t *testing.T) {
	idx := buildOverlappingIndex(t)
	q := vec(t, []uint32{1, 2}, []float32{1, 1})

	ctx := New(q, 10, idx)
	results, err := ctx.Search(nil, alive)
	require.NoError(t, err)

	for i := 1; i < len(results); i++ {
		assert.True(t, results[i-1].Score >= results[i].Score, "results must be sorted score descending")
	}

	again, err := New(q, 10, idx).Search(nil, alive)
	require.NoError(t, err)
	assert.Equal(t, results, again, "repeating the search on the same index must give the same results")
}
