// Package query turns search requests into backend-agnostic structured queries.
package query

import (
	"strings"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// PreferenceBoost is the weight applied to advisory preferred brand and
// category clauses.
const PreferenceBoost = 1.5

// BrandFallbackSize caps the text-only brand fallback search.
const BrandFallbackSize = 10

// textFields are the full-text fields and their weights.
var textFields = []domain.FieldBoost{
	{Field: domain.FieldBrand, Boost: 3},
	{Field: domain.FieldModel, Boost: 3},
	{Field: domain.FieldCategory, Boost: 2},
	{Field: domain.FieldDescription, Boost: 1},
}

// TextFields returns a copy of the weighted full-text fields.
func TextFields() []domain.FieldBoost {
	return append([]domain.FieldBoost(nil), textFields...)
}

// Build converts a (personalized) request into a structured query. It never
// fails: missing or malformed values have already been dropped by the
// filter parser.
func Build(req domain.SearchRequest) domain.StructuredQuery {
	q := domain.StructuredQuery{
		Size: req.EffectiveLimit(),
	}

	if !req.IsMatchAll() {
		q.Text = strings.TrimSpace(req.Query)
		q.Fields = TextFields()
		q.Fuzziness = domain.FuzzinessAuto
	}

	f := req.Filters
	addTerm := func(field string, v *string) {
		if v != nil && *v != "" {
			q.Terms = append(q.Terms, domain.TermFilter{Field: field, Value: *v})
		}
	}
	addTerm(domain.FieldCategory, f.Category)
	addTerm(domain.FieldBrand, f.Brand)
	addTerm(domain.FieldTargetAudience, f.TargetAudience)
	addTerm(domain.FieldColor, f.Color)

	if f.MinPrice != nil || f.MaxPrice != nil {
		q.PriceRange = &domain.PriceRange{Min: f.MinPrice, Max: f.MaxPrice}
	}

	if len(f.PreferredBrands) > 0 {
		q.Boosts = append(q.Boosts, domain.TermBoost{
			Field:  domain.FieldBrand,
			Values: append([]string(nil), f.PreferredBrands...),
			Boost:  PreferenceBoost,
		})
	}
	if len(f.PreferredCategories) > 0 {
		q.Boosts = append(q.Boosts, domain.TermBoost{
			Field:  domain.FieldCategory,
			Values: append([]string(nil), f.PreferredCategories...),
			Boost:  PreferenceBoost,
		})
	}

	return q
}

// BrandOnly builds the unfiltered text search used as the last relaxation
// tier: the brand name becomes the query and every structured filter is
// dropped.
func BrandOnly(brand string) domain.StructuredQuery {
	return domain.StructuredQuery{
		Text:      strings.TrimSpace(brand),
		Fields:    TextFields(),
		Fuzziness: domain.FuzzinessAuto,
		Size:      BrandFallbackSize,
	}
}
