// Package telemetry implements query telemetry: four independent
// scoped duration aggregators, one per query class, plus an auxiliary
// LRU of frequently queried dimensions for index-tuning diagnostics.
package telemetry

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Bucket names the four telemetry classes this index tracks and confirmed
// by the sparse-index search telemetry this core is modeled on.
type Bucket string

const (
	FilteredSparse   Bucket = "filtered_sparse"
	UnfilteredSparse Bucket = "unfiltered_sparse"
	FilteredPlain    Bucket = "filtered_plain"
	SmallCardinality Bucket = "small_cardinality"
)

var allBuckets = []Bucket{FilteredSparse, UnfilteredSparse, FilteredPlain, SmallCardinality}

// Telemetry owns the four scoped aggregators and the top-dimensions LRU.
type Telemetry struct {
	buckets map[Bucket]*aggregator
	topDims *lru.Cache[uint32, int]
}

// Config sizes Telemetry's ring buffers and LRU.
type Config struct {
	RingBufferSize        int
	TopDimensionsCapacity int
}

// DefaultConfig returns sane defaults grounded on
// QueryMetricsConfig sizing.
func DefaultConfig() Config {
	return Config{RingBufferSize: 512, TopDimensionsCapacity: 256}
}

// New constructs a Telemetry with the given config.
func New(cfg Config) *Telemetry {
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = DefaultConfig().RingBufferSize
	}
	if cfg.TopDimensionsCapacity <= 0 {
		cfg.TopDimensionsCapacity = DefaultConfig().TopDimensionsCapacity
	}

	buckets := make(map[Bucket]*aggregator, len(allBuckets))
	for _, b := range allBuckets {
		buckets[b] = newAggregator(cfg.RingBufferSize)
	}

	cache, _ := lru.New[uint32, int](cfg.TopDimensionsCapacity)
	return &Telemetry{buckets: buckets, topDims: cache}
}

// Scope starts a scoped timer for bucket and returns its release
// function. Call sites should defer the release so a sample commits
// even when the call returns an error.
func (t *Telemetry) Scope(bucket Bucket) func() {
	return t.buckets[bucket].Scope()
}

// RecordDimensions bumps the query frequency of each dimension id in
// dims, evicting the least-recently-used entry once the LRU is full.
func (t *Telemetry) RecordDimensions(dims []uint32) {
	for _, d := range dims {
		count, _ := t.topDims.Get(d)
		t.topDims.Add(d, count+1)
	}
}

// TopDimensions returns up to n of the most recently tracked dimension
// ids with their observed query counts, sorted by count descending.
func (t *Telemetry) TopDimensions(n int) []DimensionCount {
	keys := t.topDims.Keys()
	out := make([]DimensionCount, 0, len(keys))
	for _, k := range keys {
		if v, ok := t.topDims.Peek(k); ok {
			out = append(out, DimensionCount{Dimension: k, Count: v})
		}
	}
	sortDimensionCounts(out)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DimensionCount pairs a dimension id with its observed query count.
type DimensionCount struct {
	Dimension uint32
	Count     int
}

func sortDimensionCounts(dims []DimensionCount) {
	for i := 1; i < len(dims); i++ {
		for j := i; j > 0 && dims[j].Count > dims[j-1].Count; j-- {
			dims[j], dims[j-1] = dims[j-1], dims[j]
		}
	}
}

// View is a point-in-time, read-only snapshot of every bucket's stats,
// surfaced via the Index facade's telemetry() operation.
type View struct {
	FilteredSparse   Stats
	UnfilteredSparse Stats
	FilteredPlain    Stats
	SmallCardinality Stats
	TopDimensions    []DimensionCount
}

// Snapshot returns the current state of all buckets and the top
// dimensions LRU.
func (t *Telemetry) Snapshot() View {
	return View{
		FilteredSparse:   t.buckets[FilteredSparse].stats(),
		UnfilteredSparse: t.buckets[UnfilteredSparse].stats(),
		FilteredPlain:    t.buckets[FilteredPlain].stats(),
		SmallCardinality: t.buckets[SmallCardinality].stats(),
		TopDimensions:    t.TopDimensions(10),
	}
}
