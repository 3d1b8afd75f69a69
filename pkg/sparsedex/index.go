// Package sparsedex is the query router and index facade: it owns
// the inverted index's lifecycle (open, build, update), composes the
// deletion and filter predicates a search runs under, and routes each
// query to either the sparse (inverted-index) or plain (brute-force)
// path depending on estimated filter cardinality.
package sparsedex

import (
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/ologbonowiwi/sparsedex/internal/collab"
	"github.com/ologbonowiwi/sparsedex/internal/config"
	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/internal/invertedindex"
	"github.com/ologbonowiwi/sparsedex/internal/searchctx"
	"github.com/ologbonowiwi/sparsedex/internal/telemetry"
	"github.com/ologbonowiwi/sparsedex/internal/watcher"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

// Collaborators bundles the three external contracts the router reads
// from: identifiers, raw vector storage, and the payload/filter engine
// collaborators.
type Collaborators struct {
	Identifiers collab.IdentifierTracker
	Vectors     collab.VectorStorage
	Payload     collab.PayloadIndex
}

// liveConfig bundles the two config sections a ConfigWatcher reload
// swaps in one atomic step, so a reader never observes a routing
// threshold from one version of config.yaml paired with a K bound
// from another.
type liveConfig struct {
	index  config.IndexConfig
	search config.SearchConfig
}

// Index is the facade: the single entry point a caller uses to
// build, update, and search a sparse vector index.
type Index struct {
	path          string
	live          atomic.Pointer[liveConfig]
	fullCfg       config.Config
	collaborators Collaborators
	inverted      invertedindex.InvertedIndex
	ram           *invertedindex.Ram
	telemetry     *telemetry.Telemetry
	telemetryDB   *sql.DB
	telemetryRows *telemetry.Store
	logger        *slog.Logger
	watcher       *watcher.ConfigWatcher
	maxPointID    int64 // -1 means empty
	// flushed holds each bucket's stats as of its last successful flush.
	flushed map[telemetry.Bucket]telemetry.Stats
}

// Open loads (or initializes) an index rooted at path, wiring it to
// the given collaborators. A missing persisted index is not an error:
// the returned Index is simply empty and ready to be built.
//
// Open also starts a ConfigWatcher on path's config.yaml: an operator
// edit to full_scan_threshold, default_k, or max_k takes effect on the
// next search, and an edit to on_disk on the next BuildIndex, without a
// process restart. If the
// directory does not exist yet (no index has been built there), the
// watcher is skipped; BuildIndex creates the directory and reloading
// only matters once a config.yaml exists to edit.
func Open(cfg config.Config, collaborators Collaborators, path string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	inverted, err := invertedindex.Open(path)
	if err != nil {
		return nil, err
	}

	var ram *invertedindex.Ram
	if r, ok := inverted.(*invertedindex.Ram); ok {
		ram = r
	}

	idx := &Index{
		path:          path,
		fullCfg:       cfg,
		collaborators: collaborators,
		inverted:      inverted,
		ram:           ram,
		telemetry:     telemetry.New(telemetry.Config{RingBufferSize: cfg.Telemetry.RingBufferSize, TopDimensionsCapacity: cfg.Telemetry.TopDimensionsCapacity}),
		logger:        logger,
		maxPointID:    -1,
	}
	idx.live.Store(&liveConfig{index: cfg.Index, search: cfg.Search})

	w, err := watcher.New(path, idx.onConfigReload, logger)
	if err != nil {
		logger.Debug("config hot-reload disabled", slog.String("path", path), slog.Any("error", err))
	} else {
		idx.watcher = w
	}

	if cfg.Telemetry.StorePath != "" {
		if err := idx.openTelemetryStore(cfg.Telemetry.StorePath); err != nil {
			logger.Warn("telemetry persistence disabled", slog.String("store_path", cfg.Telemetry.StorePath), slog.Any("error", err))
		}
	}

	return idx, nil
}

// openTelemetryStore opens (creating if necessary) the SQLite database
// at storePath and readies it to receive periodic Flush calls. Failure
// to open the store is not fatal to Open: telemetry still works, it
// just won't survive a restart.
func (idx *Index) openTelemetryStore(storePath string) error {
	db, err := sql.Open("sqlite", storePath)
	if err != nil {
		return err
	}
	if err := telemetry.InitSchema(db); err != nil {
		_ = db.Close()
		return err
	}
	store, err := telemetry.NewStore(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	idx.telemetryDB = db
	idx.telemetryRows = store
	return nil
}

// FlushTelemetry persists what every telemetry bucket has recorded
// since the previous successful flush to the durable store,
// accumulating into today's row, so repeated flushes never count a
// sample twice. It is a no-op when telemetry.store_path was not
// configured. Callers that run
// sparsedex as a long-lived process should call this periodically (or
// at minimum on shutdown, which Close does automatically) so bucket
// stats survive a restart.
func (idx *Index) FlushTelemetry() error {
	if idx.telemetryRows == nil {
		return nil
	}
	date := time.Now().UTC().Format("2006-01-02")
	view := idx.telemetry.Snapshot()
	buckets := []struct {
		name  telemetry.Bucket
		stats telemetry.Stats
	}{
		{telemetry.FilteredSparse, view.FilteredSparse},
		{telemetry.UnfilteredSparse, view.UnfilteredSparse},
		{telemetry.FilteredPlain, view.FilteredPlain},
		{telemetry.SmallCardinality, view.SmallCardinality},
	}
	if idx.flushed == nil {
		idx.flushed = make(map[telemetry.Bucket]telemetry.Stats, len(buckets))
	}
	var errs []error
	for _, b := range buckets {
		prev := idx.flushed[b.name]
		delta := telemetry.Stats{Count: b.stats.Count - prev.Count, Min: b.stats.Min, Max: b.stats.Max}
		if delta.Count > 0 {
			total := int64(b.stats.Mean)*b.stats.Count - int64(prev.Mean)*prev.Count
			delta.Mean = time.Duration(total / delta.Count)
		}
		if err := idx.telemetryRows.Flush(date, b.name, delta); err != nil {
			errs = append(errs, err)
			continue
		}
		idx.flushed[b.name] = b.stats
	}
	return errors.Join(errs...)
}

// onConfigReload is the ConfigWatcher callback: it atomically swaps
// the facade's cached routing and search bounds to whatever was just
// reloaded from config.yaml, leaving the telemetry and logging
// sections (which require a restart to change) untouched.
func (idx *Index) onConfigReload(cfg config.Config) {
	idx.live.Store(&liveConfig{index: cfg.Index, search: cfg.Search})
	idx.logger.Info("config reloaded",
		slog.Uint64("full_scan_threshold", uint64(cfg.Index.FullScanThreshold)),
		slog.Bool("on_disk", cfg.Index.OnDisk))
}

// setIndexConfig overrides the live routing config directly, bypassing
// config.yaml — used by callers that need to flip a knob in-process
// without a reload round-trip (tests, short-lived CLI invocations).
func (idx *Index) setIndexConfig(cfg config.IndexConfig) {
	cur := idx.live.Load()
	idx.live.Store(&liveConfig{index: cfg, search: cur.search})
}

// Close stops the index's config watcher and flushes and closes its
// telemetry store, if either is running. Callers that open an Index
// for a long-lived process should defer Close.
func (idx *Index) Close() error {
	var errs []error
	if idx.watcher != nil {
		if err := idx.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if idx.telemetryRows != nil {
		if err := idx.FlushTelemetry(); err != nil {
			errs = append(errs, err)
		}
	}
	if idx.telemetryDB != nil {
		if err := idx.telemetryDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildIndex iterates every alive point reported by the identifier
// collaborator, reads its raw vector, and upserts it into a fresh ram
// index, checking cancellation at every point. On completion it
// materializes the on-disk mmap variant (when cfg.OnDisk is set) and
// persists the config sentinel — only after the build fully succeeds,
// so a crash never leaves a config file for an index that doesn't
// exist.
func (idx *Index) BuildIndex(cancel *searchctx.Cancel) error {
	ram := invertedindex.NewRam()

	ids := idx.collaborators.Identifiers.IterAliveIDs()
	var maxID int64 = -1
	for _, id := range ids {
		if cancel != nil && cancel.IsSet() {
			return sdxerrors.Cancelled()
		}
		vec, err := idx.collaborators.Vectors.GetVector(id)
		if err != nil {
			return err
		}
		ram.Upsert(id, vec)
		if int64(id) > maxID {
			maxID = int64(id)
		}
	}

	idx.ram = ram
	idx.inverted = ram
	idx.maxPointID = maxID

	live := idx.live.Load()
	if live.index.OnDisk {
		materialized, err := invertedindex.FromRamIndex(ram, idx.path)
		if err != nil {
			return err
		}
		idx.inverted = materialized
		idx.ram = nil
	}

	persisted := idx.fullCfg
	persisted.Index = live.index
	persisted.Search = live.search
	if err := config.Save(idx.path, persisted); err != nil {
		return err
	}

	idx.logger.Info("index build complete", slog.Int64("max_point_id", maxID), slog.Int("indexed_vectors", idx.IndexedVectorCount()))
	return nil
}

// UpdateVector rereads id's vector from storage and upserts it into
// the ram index, advancing max_point_id as needed. Requires the ram
// variant: the mmap variant is immutable.
func (idx *Index) UpdateVector(id uint32) error {
	if idx.ram == nil {
		return sdxerrors.InternalError("update_vector requires the ram index variant", nil)
	}
	vec, err := idx.collaborators.Vectors.GetVector(id)
	if err != nil {
		return err
	}
	idx.ram.Upsert(id, vec)
	if int64(id) > idx.maxPointID {
		idx.maxPointID = int64(id)
	}
	return nil
}

// Files enumerates every file backing this index's persisted state.
func (idx *Index) Files() []string {
	if idx.inverted == nil {
		return nil
	}
	return idx.inverted.Files()
}

// IndexedVectorCount returns max_point_id + 1, or 0 if the index is
// empty.
func (idx *Index) IndexedVectorCount() int {
	if idx.maxPointID < 0 {
		return 0
	}
	return int(idx.maxPointID) + 1
}

// Telemetry returns a point-in-time snapshot of the router's
// telemetry buckets.
func (idx *Index) Telemetry() telemetry.View {
	return idx.telemetry.Snapshot()
}

// MaxResultCount returns the number of distinct record ids reachable
// for query: the size of the union of its dimensions' posting lists.
// Callers can use this to cap K before calling Search without running
// a full search.
func (idx *Index) MaxResultCount(query sparse.Vector) int {
	if idx.inverted == nil {
		return 0
	}
	seen := make(map[uint32]struct{})
	for _, dim := range query.Indices() {
		list, ok := idx.inverted.Get(dim)
		if !ok {
			continue
		}
		for _, el := range list.Elements() {
			seen[el.RecordID] = struct{}{}
		}
	}
	return len(seen)
}

func (idx *Index) clampK(k int) int {
	search := idx.live.Load().search
	if k <= 0 {
		k = search.DefaultK
	}
	if k > search.MaxK {
		k = search.MaxK
	}
	return k
}

func (idx *Index) alive(rid uint32) bool {
	if idx.collaborators.Identifiers.DeletedPoint(rid) {
		return false
	}
	return !idx.collaborators.Vectors.DeletedVector(rid)
}

// Search runs queries of kind Nearest against the index, applying
// filter (if any) and returning up to K results per query. Results for
// independent queries are computed concurrently via errgroup.
func (idx *Index) Search(kind QueryKind, queries []sparse.Vector, filter collab.Filter, k int, cancel *searchctx.Cancel) ([][]searchctx.Result, error) {
	if kind != QueryNearest {
		return nil, sdxerrors.UnsupportedQueryKind(string(kind))
	}
	k = idx.clampK(k)

	results := make([][]searchctx.Result, len(queries))
	g := new(errgroup.Group)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := idx.searchOne(q, filter, k, cancel)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchPlain forces the brute-force path regardless of estimated
// cardinality, primarily for testing sparse/plain parity against the
// sparse path.
func (idx *Index) SearchPlain(queries []sparse.Vector, filter collab.Filter, k int, cancel *searchctx.Cancel) ([][]searchctx.Result, error) {
	k = idx.clampK(k)
	results := make([][]searchctx.Result, len(queries))
	for i, q := range queries {
		stop := idx.telemetry.Scope(telemetry.FilteredPlain)
		res, err := idx.plainSearch(q, filter, k, cancel)
		stop()
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (idx *Index) searchOne(q sparse.Vector, filter collab.Filter, k int, cancel *searchctx.Cancel) ([]searchctx.Result, error) {
	idx.telemetry.RecordDimensions(q.Indices())

	if filter == nil {
		stop := idx.telemetry.Scope(telemetry.UnfilteredSparse)
		defer stop()
		return idx.sparseSearch(q, idx.alive, k, cancel)
	}

	card := idx.collaborators.Payload.EstimateCardinality(filter)
	card = collab.AdjustToAvailable(card, idx.collaborators.Vectors.AvailableVectorCount(), idx.collaborators.Identifiers.AvailablePointCount())

	if uint32(card.Max) < idx.live.Load().index.FullScanThreshold {
		stop := idx.telemetry.Scope(telemetry.SmallCardinality)
		defer stop()
		return idx.plainSearch(q, filter, k, cancel)
	}

	stop := idx.telemetry.Scope(telemetry.FilteredSparse)
	defer stop()
	ctx := idx.collaborators.Payload.FilterContextFor(filter)
	condition := func(rid uint32) bool { return idx.alive(rid) && ctx.Check(rid) }
	return idx.sparseSearch(q, condition, k, cancel)
}

func (idx *Index) sparseSearch(q sparse.Vector, condition func(uint32) bool, k int, cancel *searchctx.Cancel) ([]searchctx.Result, error) {
	ctx := searchctx.New(q, k, idx.inverted)
	return ctx.Search(cancel, condition)
}

func (idx *Index) plainSearch(q sparse.Vector, filter collab.Filter, k int, cancel *searchctx.Cancel) ([]searchctx.Result, error) {
	var ids []uint32
	if filter != nil {
		ids = idx.collaborators.Payload.QueryPoints(filter)
	} else {
		ids = idx.collaborators.Identifiers.IterAliveIDs()
	}

	alive := ids[:0]
	for _, id := range ids {
		if cancel != nil && cancel.IsSet() {
			return nil, sdxerrors.Cancelled()
		}
		if idx.alive(id) {
			alive = append(alive, id)
		}
	}

	scorer := idx.collaborators.Vectors.RawScorer(q)
	scored := scorer.PeekTop(alive, k)

	out := make([]searchctx.Result, len(scored))
	for i, s := range scored {
		out[i] = searchctx.Result{RecordID: s.RecordID, Score: s.Score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RecordID < out[j].RecordID
	})
	return out, nil
}
