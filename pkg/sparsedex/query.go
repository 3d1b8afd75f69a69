package sparsedex

// QueryKind names the supported and unsupported query shapes a caller
// may request. Only Nearest is implemented; everything else
// fails fast with UnsupportedQueryKind before touching the index.
type QueryKind string

const (
	QueryNearest   QueryKind = "nearest"
	QueryRecommend QueryKind = "recommend"
	QueryDiscover  QueryKind = "discover"
	QueryContext   QueryKind = "context"
)
