package sparse

// ScoredID pairs a record id with its dot-product score against some
// query vector, the unit of result shared by the search context, raw
// scorers, and the query router.
type ScoredID struct {
	RecordID uint32
	Score    float32
}
