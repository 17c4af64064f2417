package domain

import "unicode/utf8"

// Logical product fields understood by every index backend. Backends map
// them onto their own analyzed and keyword representations.
const (
	FieldBrand          = "brand"
	FieldModel          = "model"
	FieldCategory       = "category"
	FieldTargetAudience = "target_audience"
	FieldColor          = "color"
	FieldDescription    = "description"
	FieldPrice          = "price"
)

// FuzzinessAuto scales the tolerated edit distance with term length.
const FuzzinessAuto = "AUTO"

// AutoEdits returns the edit distance FuzzinessAuto allows for term: none
// up to 2 runes, one up to 5 runes, two beyond.
func AutoEdits(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// FieldBoost is a full-text field with its relevance weight.
type FieldBoost struct {
	Field string
	Boost float64
}

// TermFilter is an exact keyword match used in filter context only.
type TermFilter struct {
	Field string
	Value string
}

// TermBoost is an optional clause that raises the score of documents whose
// keyword field equals one of Values. It never excludes documents.
type TermBoost struct {
	Field  string
	Values []string
	Boost  float64
}

// PriceRange is an inclusive numeric range; nil bounds are open.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether price falls in the range.
func (r *PriceRange) Contains(price float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && price < *r.Min {
		return false
	}
	if r.Max != nil && price > *r.Max {
		return false
	}
	return true
}

// StructuredQuery is a backend-agnostic search request.
type StructuredQuery struct {
	// Text is the full-text query; empty selects every document.
	Text       string
	Fields     []FieldBoost
	Fuzziness  string
	Terms      []TermFilter
	PriceRange *PriceRange
	Boosts     []TermBoost
	Size       int
}

// MatchAll reports whether the query has no full-text clause.
func (q *StructuredQuery) MatchAll() bool {
	return q.Text == ""
}
