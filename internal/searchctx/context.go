// Package searchctx implements the streaming top-K scorer: a
// dot-product scorer over an inverted index, with pruning and
// cooperative cancellation.
package searchctx

import (
	"container/heap"
	"sort"

	sdxerrors "github.com/ologbonowiwi/sparsedex/internal/errors"
	"github.com/ologbonowiwi/sparsedex/internal/invertedindex"
	"github.com/ologbonowiwi/sparsedex/internal/postings"
	"github.com/ologbonowiwi/sparsedex/pkg/sparse"
)

// Result is one scored candidate returned by Search.
type Result struct {
	RecordID uint32
	Score    float32
}

// pollInterval bounds how many posting elements Search scans between
// cancellation checks, at least once per 2^14 posting
// elements scanned".
const pollInterval = 1 << 14

type dimState struct {
	qWeight   float32
	maxWeight float32
	cursor    *postings.Cursor
}

// Context holds the ephemeral per-query state: surviving
// query dimensions paired with their posting-list cursors, the K target,
// and the lazily-recomputed pruning bound.
type Context struct {
	k     int
	dims  []dimState
	upper float32
}

// New prepares a Context for query against index. Query dimensions with
// no posting list in index are dropped; K must be positive.
func New(query sparse.Vector, k int, index invertedindex.InvertedIndex) *Context {
	indices := query.Indices()
	values := query.Values()

	dims := make([]dimState, 0, len(indices))
	var upper float32
	for i, d := range indices {
		list, ok := index.Get(d)
		if !ok {
			continue
		}
		qw := values[i]
		mw := list.MaxWeight()
		dims = append(dims, dimState{
			qWeight:   qw,
			maxWeight: mw,
			cursor:    list.IterFrom(0),
		})
		upper += qw * mw
	}

	return &Context{k: k, dims: dims, upper: upper}
}

// Search runs the main scoring loop and returns up to K
// results sorted by score descending, ties broken by smaller record id
// first. condition(rid) gates whether a candidate is eligible for
// inclusion (deletion filtering, payload filtering, or both, composed by
// the caller).
func (c *Context) Search(cancel *Cancel, condition func(recordID uint32) bool) ([]Result, error) {
	h := make(candidateHeap, 0, c.k)
	scanned := 0

	for {
		if cancel != nil && cancel.IsSet() {
			return nil, sdxerrors.Cancelled()
		}

		rid, any := c.frontier()
		if !any {
			break
		}

		var score float32
		for i := range c.dims {
			d := &c.dims[i]
			e, ok := d.cursor.Peek()
			if !ok || e.RecordID != rid {
				continue
			}
			score += d.qWeight * e.Weight
			d.cursor.Advance()
			scanned++
			if scanned%pollInterval == 0 && cancel != nil && cancel.IsSet() {
				return nil, sdxerrors.Cancelled()
			}
		}

		c.reclaimExhausted()

		if condition == nil || condition(rid) {
			c.offer(&h, scored{Score: score, RecordID: rid})
		}

		if c.pruned(&h) {
			break
		}
	}

	return drain(h), nil
}

// frontier returns the smallest record id across all live cursors.
func (c *Context) frontier() (uint32, bool) {
	var (
		min   uint32
		found bool
	)
	for i := range c.dims {
		e, ok := c.dims[i].cursor.Peek()
		if !ok {
			continue
		}
		if !found || e.RecordID < min {
			min = e.RecordID
			found = true
		}
	}
	return min, found
}

// reclaimExhausted subtracts the contribution of any cursor that just
// ran out of elements from the pruning bound, via lazy
// recomputation on exhaustion.
func (c *Context) reclaimExhausted() {
	kept := c.dims[:0]
	for _, d := range c.dims {
		if d.cursor.Exhausted() {
			c.upper -= d.qWeight * d.maxWeight
			continue
		}
		kept = append(kept, d)
	}
	c.dims = kept
}

func (c *Context) offer(h *candidateHeap, s scored) {
	if h.Len() < c.k {
		heap.Push(h, s)
		return
	}
	if h.Len() > 0 && s.Score > (*h)[0].Score {
		(*h)[0] = s
		heap.Fix(h, 0)
	}
}

// pruned reports whether no remaining candidate can displace the
// current K-th best, via a theta/upper-bound test.
func (c *Context) pruned(h *candidateHeap) bool {
	if h.Len() < c.k {
		return false
	}
	theta := (*h)[0].Score
	return c.upper <= theta
}

func drain(h candidateHeap) []Result {
	out := make([]Result, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		item := heap.Pop(&h).(scored)
		out[i] = Result{RecordID: item.RecordID, Score: item.Score}
	}
	// heap.Pop already yields ascending-score order reversed into out;
	// re-sort defensively to guarantee the documented tie-break even if
	// duplicate scores were popped out of heap order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].RecordID < out[j].RecordID
	})
	return out
}

// MaxPossibleScore exposes the current pruning upper bound, useful for
// diagnostics and tests.
func (c *Context) MaxPossibleScore() float32 { return c.upper }
