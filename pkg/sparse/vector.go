// Package sparse defines the sparse vector value type shared by the
// inverted index, the search context, and the query router.
package sparse

import (
	"math"
	"sort"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
)

// DimID is a dimension identifier. Dimension ids are non-negative and
// stable for the lifetime of an index.
type DimID = uint32

// Weight is a single-precision coordinate value.
type Weight = float32

// Vector is an immutable sparse vector: a strictly increasing sequence of
// dimension ids paired one-to-one with their weights.
//
// Construct a Vector only through New or FromPairs; the zero value is not
// a valid Vector.
type Vector struct {
	indices []DimID
	values  []Weight
}

// New validates indices and values and returns a Vector, or an
// InvalidSparseVector error describing the first violated invariant.
//
// Invariants: both slices non-empty and equal length, indices strictly
// increasing with no duplicates, and every value finite.
func New(indices []DimID, values []Weight) (Vector, error) {
	if len(indices) == 0 || len(values) == 0 {
		return Vector{}, sdxerrors.InvalidSparseVector("empty")
	}
	if len(indices) != len(values) {
		return Vector{}, sdxerrors.InvalidSparseVector("length_mismatch")
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] < indices[i-1] {
			return Vector{}, sdxerrors.InvalidSparseVector("not_sorted")
		}
		if indices[i] == indices[i-1] {
			return Vector{}, sdxerrors.InvalidSparseVector("duplicate_index")
		}
	}
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Vector{}, sdxerrors.InvalidSparseVector("non_finite_value")
		}
		if v < 0 {
			return Vector{}, sdxerrors.InvalidSparseVector("negative_weight")
		}
	}
	out := Vector{
		indices: append([]DimID(nil), indices...),
		values:  append([]Weight(nil), values...),
	}
	return out, nil
}

// Pair is an unordered (dimension, weight) tuple as typically produced by
// callers building a query from user input.
type Pair struct {
	Index int32
	Value float64
}

// FromPairs accepts arbitrary, unordered pairs, sorts them by index,
// downcasts to (DimID, Weight), and validates the result via New.
// A negative Index fails with InvalidSparseVector("negative_index")
// before New is called.
func FromPairs(pairs []Pair) (Vector, error) {
	sorted := append([]Pair(nil), pairs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	indices := make([]DimID, len(sorted))
	values := make([]Weight, len(sorted))
	for i, p := range sorted {
		if p.Index < 0 {
			return Vector{}, sdxerrors.InvalidSparseVector("negative_index")
		}
		indices[i] = DimID(p.Index)
		values[i] = Weight(p.Value)
	}
	return New(indices, values)
}

// Indices returns the vector's dimension ids in ascending order. The
// returned slice must not be mutated by the caller.
func (v Vector) Indices() []DimID { return v.indices }

// Values returns the vector's weights, parallel to Indices. The returned
// slice must not be mutated by the caller.
func (v Vector) Values() []Weight { return v.values }

// Len returns the number of non-zero dimensions.
func (v Vector) Len() int { return len(v.indices) }

// IsZero reports whether v is the unconstructed zero value.
func (v Vector) IsZero() bool { return v.indices == nil }

// Dot computes the classical merge-sum dot product between v and other.
// Both vectors must already be sorted by dimension id, which New and
// FromPairs guarantee. O(|v|+|other|).
func (v Vector) Dot(other Vector) Weight {
	var score Weight
	i, j := 0, 0
	for i < len(v.indices) && j < len(other.indices) {
		switch {
		case v.indices[i] < other.indices[j]:
			i++
		case v.indices[i] > other.indices[j]:
			j++
		default:
			score += v.values[i] * other.values[j]
			i++
			j++
		}
	}
	return score
}

// Overlaps reports whether v and other share at least one dimension id.
// Short-circuits on the first coincidence.
func (v Vector) Overlaps(other Vector) bool {
	i, j := 0, 0
	for i < len(v.indices) && j < len(other.indices) {
		switch {
		case v.indices[i] < other.indices[j]:
			i++
		case v.indices[i] > other.indices[j]:
			j++
		default:
			return true
		}
	}
	return false
}
