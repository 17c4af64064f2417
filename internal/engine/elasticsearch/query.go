package elasticsearch

import (
	"fmt"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// keywordField maps a logical filter field onto its exact-match sub-field.
func keywordField(field string) string {
	return field + ".keyword"
}

// buildSearchBody translates a structured query into Elasticsearch query DSL.
func buildSearchBody(q domain.StructuredQuery) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{buildMust(q)},
	}

	if filters := buildFilters(q); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	if should := buildShould(q); len(should) > 0 {
		boolQuery["should"] = should
	}

	size := q.Size
	if size <= 0 {
		size = domain.DefaultResultSize
	}
	if size > domain.MaxResultSize {
		size = domain.MaxResultSize
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
		"size":             size,
		"track_total_hits": true,
		"track_scores":     true,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{domain.FieldPrice: map[string]interface{}{"order": "asc"}},
		},
	}
}

func buildMust(q domain.StructuredQuery) map[string]interface{} {
	if q.MatchAll() {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	fields := make([]string, 0, len(q.Fields))
	for _, f := range q.Fields {
		fields = append(fields, fmt.Sprintf("%s^%g", f.Field, f.Boost))
	}

	match := map[string]interface{}{
		"query":  q.Text,
		"fields": fields,
		"type":   "best_fields",
	}
	if q.Fuzziness != "" {
		match["fuzziness"] = q.Fuzziness
		match["prefix_length"] = 1
	}

	return map[string]interface{}{
		"multi_match": match,
	}
}

func buildFilters(q domain.StructuredQuery) []interface{} {
	var filters []interface{}

	for _, t := range q.Terms {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{
				keywordField(t.Field): t.Value,
			},
		})
	}

	if r := q.PriceRange; r != nil && (r.Min != nil || r.Max != nil) {
		rangeFilter := map[string]interface{}{}
		if r.Min != nil {
			rangeFilter["gte"] = *r.Min
		}
		if r.Max != nil {
			rangeFilter["lte"] = *r.Max
		}
		filters = append(filters, map[string]interface{}{
			"range": map[string]interface{}{
				domain.FieldPrice: rangeFilter,
			},
		})
	}

	return filters
}

// buildShould renders preference boosts as optional clauses. The must clause
// is always present, so should clauses only affect scoring.
func buildShould(q domain.StructuredQuery) []interface{} {
	var should []interface{}
	for _, b := range q.Boosts {
		if len(b.Values) == 0 {
			continue
		}
		should = append(should, map[string]interface{}{
			"terms": map[string]interface{}{
				keywordField(b.Field): b.Values,
				"boost":               b.Boost,
			},
		})
	}
	return should
}

// buildSuggestBody builds a completion suggester request.
func buildSuggestBody(prefix string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"_source": false,
		"suggest": map[string]interface{}{
			suggestionName: map[string]interface{}{
				"prefix": prefix,
				"completion": map[string]interface{}{
					"field":           suggestField,
					"size":            limit,
					"skip_duplicates": true,
				},
			},
		},
	}
}
