package searchctx

// scored is one candidate result: a record id and its accumulated
// dot-product score.
type scored struct {
	Score    float32
	RecordID uint32
}

// candidateHeap is a min-heap over scored ordered by Score ascending,
// with ties broken by RecordID descending so that, once drained and
// reversed, equal scores come out with the smaller RecordID first
// output: "tie-breaking by smaller record_id first").
type candidateHeap []scored

func (h candidateHeap) Len() int { return len(h) }
func (h candidateHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].RecordID > h[j].RecordID
}
func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(scored))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
