package sparsedex

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ologbonowiwi/sparsedex/internal/collab"
	"github.com/ologbonowiwi/sparsedex/internal/config"
	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/internal/searchctx"
	"github.com/ologbonowiwi/sparsedex/internal/telemetry"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

func vec(t *testing.T, idx []uint32, val []float32) sparse.Vector {
	t.Helper()
	v, err := sparse.New(idx, val)
	require.NoError(t, err)
	return v
}

func buildTwoPointCorpus(t *testing.T) (*Index, Collaborators) {
	t.Helper()
	tr := collab.NewMemoryIdentifierTracker()
	store := collab.NewMemoryVectorStorage()
	payload := collab.NewMemoryPayloadIndex()

	id1 := tr.Reserve()
	id2 := tr.Reserve()
	store.Put(id1, vec(t, []uint32{1, 2, 3}, []float32{1.0, 2.0, 3.0}))
	store.Put(id2, vec(t, []uint32{2, 3, 4}, []float32{2.0, 3.0, 4.0}))
	payload.Set(id1, "lang", "go")
	payload.Set(id2, "lang", "rust")

	collaborators := Collaborators{Identifiers: tr, Vectors: store, Payload: payload}
	cfg := config.DefaultConfig()
	cfg.Index.FullScanThreshold = 1000

	dir := t.TempDir()
	idx, err := Open(cfg, collaborators, dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.BuildIndex(nil))
	return idx, collaborators
}

func TestSearchUnfilteredMatchesExpectedScores(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	q := vec(t, []uint32{1, 2, 3}, []float32{1.0, 2.0, 3.0})

	results, err := idx.Search(QueryNearest, []sparse.Vector{q}, nil, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0], 2)
	assert.Equal(t, uint32(0), results[0][0].RecordID)
	assert.Equal(t, float32(14.0), results[0][0].Score)
	assert.Equal(t, uint32(1), results[0][1].RecordID)
	assert.Equal(t, float32(13.0), results[0][1].Score)
}

func TestSearchRejectsUnsupportedQueryKind(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	q := vec(t, []uint32{1}, []float32{1.0})

	_, err := idx.Search(QueryRecommend, []sparse.Vector{q}, nil, 2, nil)
	require.Error(t, err)
	assert.Equal(t, sdxerrors.ErrCodeUnsupportedQueryKind, sdxerrors.GetCode(err))
}

func TestSmallCardinalityFilterRoutesToPlainAndMatchesSparse(t *testing.T) {
	idx, collaborators := buildTwoPointCorpus(t)
	q := vec(t, []uint32{1, 2, 3}, []float32{1.0, 2.0, 3.0})
	filter := collab.FieldEquals{Field: "lang", Value: "rust"}

	results, err := idx.Search(QueryNearest, []sparse.Vector{q}, filter, 2, nil)
	require.NoError(t, err)
	require.Len(t, results[0], 1)
	assert.Equal(t, uint32(1), results[0][0].RecordID)
	assert.Equal(t, float32(13.0), results[0][0].Score)
	assert.Equal(t, int64(1), idx.Telemetry().SmallCardinality.Count)

	plain, err := idx.SearchPlain([]sparse.Vector{q}, filter, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, results, plain)

	fctx := collaborators.Payload.FilterContextFor(filter)
	sparseRes, err := idx.sparseSearch(q, func(rid uint32) bool { return idx.alive(rid) && fctx.Check(rid) }, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, results[0], sparseRes)
}

func TestIndexedVectorCountReflectsMaxPointID(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	assert.Equal(t, 2, idx.IndexedVectorCount())
}

func TestUpdateVectorRequiresRamVariant(t *testing.T) {
	idx, collaborators := buildTwoPointCorpus(t)
	idx.setIndexConfig(config.IndexConfig{OnDisk: true, FullScanThreshold: idx.live.Load().index.FullScanThreshold})
	require.NoError(t, idx.BuildIndex(nil))

	collaborators.Vectors.(*collab.MemoryVectorStorage).Put(0, vec(t, []uint32{9}, []float32{1.0}))
	err := idx.UpdateVector(0)
	require.Error(t, err)
}

func TestMaxResultCountUnionsQueryDimensionPostings(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	// dim 1 only touches record 0; dim 4 only touches record 1; dim 2,3
	// touch both. The union across {1,4} is still both records.
	q := vec(t, []uint32{1, 4}, []float32{1.0, 1.0})
	assert.Equal(t, 2, idx.MaxResultCount(q))

	q2 := vec(t, []uint32{1}, []float32{1.0})
	assert.Equal(t, 1, idx.MaxResultCount(q2))
}

func TestConfigReloadUpdatesRoutingThresholdWithoutRestart(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	require.Equal(t, uint32(1000), idx.live.Load().index.FullScanThreshold)

	persisted, _, err := config.Load(idx.path)
	require.NoError(t, err)
	persisted.Index.FullScanThreshold = 1
	require.NoError(t, config.Save(idx.path, persisted))

	require.Eventually(t, func() bool {
		return idx.live.Load().index.FullScanThreshold == 1
	}, time.Second, 10*time.Millisecond, "config watcher did not pick up the edited config.yaml")
}

func TestFlushTelemetryPersistsBucketCounts(t *testing.T) {
	tr := collab.NewMemoryIdentifierTracker()
	store := collab.NewMemoryVectorStorage()
	payload := collab.NewMemoryPayloadIndex()
	id1 := tr.Reserve()
	store.Put(id1, vec(t, []uint32{1}, []float32{1.0}))

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Telemetry.StorePath = filepath.Join(dir, "telemetry.db")

	idx, err := Open(cfg, Collaborators{Identifiers: tr, Vectors: store, Payload: payload}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, idx.BuildIndex(nil))

	q := vec(t, []uint32{1}, []float32{1.0})
	_, err = idx.Search(QueryNearest, []sparse.Vector{q}, nil, 1, nil)
	require.NoError(t, err)

	require.NoError(t, idx.FlushTelemetry())
	require.NoError(t, idx.Close())

	reopened, err := Open(cfg, Collaborators{Identifiers: tr, Vectors: store, Payload: payload}, dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	today := time.Now().UTC().Format("2006-01-02")
	totals, err := reopened.telemetryRows.DailyTotals(telemetry.UnfilteredSparse, today, today)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, int64(1), totals[0].Count)
}

func TestSearchCancellationPropagates(t *testing.T) {
	idx, _ := buildTwoPointCorpus(t)
	q := vec(t, []uint32{1, 2, 3}, []float32{1.0, 2.0, 3.0})

	cancel := &searchctx.Cancel{}
	cancel.Set()
	_, err := idx.Search(QueryNearest, []sparse.Vector{q}, nil, 2, cancel)
	require.Error(t, err)
	assert.True(t, sdxerrors.IsCancelled(err))
}
