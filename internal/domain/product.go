package domain

import (
	"sort"
	"strings"
)

// MatchAllQuery is the query sentinel that selects every document.
const MatchAllQuery = "*"

// MaxResultSize bounds the number of hits fetched from the index backend
// for a single request, regardless of the requested limit.
const MaxResultSize = 100

// DefaultResultSize is used when the caller does not request a limit.
const DefaultResultSize = 20

// Product is a document in the product index.
type Product struct {
	ID             string  `json:"id"`
	Brand          string  `json:"brand"`
	Model          string  `json:"model"`
	Price          float64 `json:"price"`
	Category       string  `json:"category"`
	TargetAudience string  `json:"target_audience"`
	Color          string  `json:"color,omitempty"`
	Description    string  `json:"description"`
}

// Hit is a product together with the backend relevance score.
type Hit struct {
	Product
	Score float64 `json:"score"`
}

// Relaxation marks which tier of the relaxation sequence produced a result.
type Relaxation string

const (
	RelaxationNone      Relaxation = "none"
	RelaxationColor     Relaxation = "color_dropped"
	RelaxationBrandOnly Relaxation = "brand_only"
	RelaxationExhausted Relaxation = "exhausted"
)

// Relaxed reports whether results were produced by a loosened request.
func (r Relaxation) Relaxed() bool {
	return r == RelaxationColor || r == RelaxationBrandOnly
}

// SearchRequest is the structured request produced by the intent extractor.
type SearchRequest struct {
	Query   string    `json:"query"`
	Filters FilterSet `json:"filters"`
	Limit   int       `json:"limit,omitempty"`
}

// IsMatchAll reports whether the request query selects every document.
func (r SearchRequest) IsMatchAll() bool {
	q := strings.TrimSpace(r.Query)
	return q == "" || q == MatchAllQuery
}

// EffectiveLimit returns the limit clamped to (0, MaxResultSize].
func (r SearchRequest) EffectiveLimit() int {
	switch {
	case r.Limit <= 0:
		return DefaultResultSize
	case r.Limit > MaxResultSize:
		return MaxResultSize
	default:
		return r.Limit
	}
}

// RankedResults is the outcome of a search.
type RankedResults struct {
	Hits       []Hit      `json:"products"`
	Total      int        `json:"total"`
	Relaxation Relaxation `json:"relaxation"`
	Cached     bool       `json:"cached"`
}

// Empty reports whether no product was found.
func (r *RankedResults) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

// SortHits orders hits by score descending, then price ascending so that
// cheaper products surface first among equally relevant ones.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Price < hits[j].Price
	})
}
