// Package collab defines the external collaborator contracts consumed by
// the query router and provides in-memory reference
// implementations of each, used for tests and the CLI demo. Production
// deployments are expected to supply their own collaborators backed by
// a real identifier tracker, vector store, and payload engine.
package collab

import (
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

// Cardinality is a cardinality estimate in record counts.
type Cardinality struct {
	Min      int
	Expected int
	Max      int
}

// FilterContext evaluates a compiled filter against individual point
// ids, typically cheaper per-call than re-running the whole filter.
type FilterContext interface {
	Check(id uint32) bool
}

// IdentifierTracker reports which point ids are alive.
type IdentifierTracker interface {
	// IterAliveIDs returns every point id not marked deleted, in
	// ascending order.
	IterAliveIDs() []uint32
	// AvailablePointCount is the number of alive point ids.
	AvailablePointCount() int
	// DeletedPoint reports whether id has been tombstoned.
	DeletedPoint(id uint32) bool
}

// Scorer scores a fixed query vector against arbitrary candidate ids
// read from raw storage, used by the plain path.
type Scorer interface {
	// PeekTop scores every id yielded by ids and returns the K highest,
	// sorted by score descending.
	PeekTop(ids []uint32, k int) []sparse.ScoredID
}

// VectorStorage is the raw-vector collaborator.
type VectorStorage interface {
	// GetVector returns the stored vector for id, or a MissingVector
	// error if absent.
	GetVector(id uint32) (sparse.Vector, error)
	// DeletedVector reports whether id's vector has been tombstoned
	// independently of point deletion.
	DeletedVector(id uint32) bool
	// AvailableVectorCount is the number of non-tombstoned vectors.
	AvailableVectorCount() int
	// RawScorer returns a Scorer bound to query.
	RawScorer(query sparse.Vector) Scorer
}

// PayloadIndex is the filter/attribute collaborator.
type PayloadIndex interface {
	// EstimateCardinality estimates how many points satisfy filter.
	EstimateCardinality(filter Filter) Cardinality
	// QueryPoints materializes every point id satisfying filter.
	QueryPoints(filter Filter) []uint32
	// FilterContextFor compiles filter into a reusable FilterContext.
	FilterContextFor(filter Filter) FilterContext
}

// Filter is an opaque payload predicate; MemoryPayloadIndex interprets
// FieldEquals filters, but the interface itself carries no assumptions
// about representation so real deployments can plug in a richer engine.
type Filter interface {
	isFilter()
}

// AdjustToAvailable clamps a raw cardinality estimate against the
// number of vectors and points actually available, matching the
// original source's adjust_to_available_vectors: the upper bound can
// never exceed what is actually retrievable.
func AdjustToAvailable(c Cardinality, availableVectors, availablePoints int) Cardinality {
	bound := availableVectors
	if availablePoints < bound {
		bound = availablePoints
	}
	if c.Max > bound {
		c.Max = bound
	}
	if c.Expected > c.Max {
		c.Expected = c.Max
	}
	if c.Min > c.Max {
		c.Min = c.Max
	}
	return c
}
