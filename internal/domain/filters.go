package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Filter keys recognised in a FilterSet.
const (
	FilterCategory            = "category"
	FilterBrand               = "brand"
	FilterTargetAudience      = "target_audience"
	FilterColor               = "color"
	FilterMinPrice            = "min_price"
	FilterMaxPrice            = "max_price"
	FilterPreferredBrands     = "preferred_brands"
	FilterPreferredCategories = "preferred_categories"
)

// FilterSet holds the concrete constraints of a search plus the advisory
// personalization hints. Advisory sets never exclude documents.
type FilterSet struct {
	Category       *string  `json:"category,omitempty"`
	Brand          *string  `json:"brand,omitempty"`
	TargetAudience *string  `json:"target_audience,omitempty"`
	Color          *string  `json:"color,omitempty"`
	MinPrice       *float64 `json:"min_price,omitempty"`
	MaxPrice       *float64 `json:"max_price,omitempty"`

	PreferredBrands     []string `json:"preferred_brands,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// FilterPair is a single key/value entry of a FilterSet.
type FilterPair struct {
	Key   string
	Value any
}

// ParseFilterSet builds a FilterSet from loosely typed input such as the
// output of the intent extractor. Unknown keys are ignored. Values that
// cannot be interpreted (empty strings, non-numeric prices) are treated as
// absent rather than rejected.
func ParseFilterSet(raw map[string]any) FilterSet {
	var f FilterSet
	f.Category = stringValue(raw[FilterCategory])
	f.Brand = stringValue(raw[FilterBrand])
	f.TargetAudience = stringValue(raw[FilterTargetAudience])
	f.Color = stringValue(raw[FilterColor])
	f.MinPrice = priceValue(raw[FilterMinPrice])
	f.MaxPrice = priceValue(raw[FilterMaxPrice])
	f.PreferredBrands = normalizeSet(stringList(raw[FilterPreferredBrands]))
	f.PreferredCategories = normalizeSet(stringList(raw[FilterPreferredCategories]))
	return f
}

// UnmarshalJSON decodes a filter object leniently via ParseFilterSet.
func (f *FilterSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = ParseFilterSet(raw)
	return nil
}

// HasConcreteFilter reports whether at least one hard constraint is set.
func (f FilterSet) HasConcreteFilter() bool {
	return f.Category != nil || f.Brand != nil || f.TargetAudience != nil ||
		f.Color != nil || f.MinPrice != nil || f.MaxPrice != nil
}

// Clone returns a deep copy that shares no memory with f.
func (f FilterSet) Clone() FilterSet {
	out := FilterSet{
		Category:       clonePtr(f.Category),
		Brand:          clonePtr(f.Brand),
		TargetAudience: clonePtr(f.TargetAudience),
		Color:          clonePtr(f.Color),
		MinPrice:       clonePtr(f.MinPrice),
		MaxPrice:       clonePtr(f.MaxPrice),
	}
	if f.PreferredBrands != nil {
		out.PreferredBrands = append([]string{}, f.PreferredBrands...)
	}
	if f.PreferredCategories != nil {
		out.PreferredCategories = append([]string{}, f.PreferredCategories...)
	}
	return out
}

// WithoutColor returns a copy of f with the color constraint removed.
func (f FilterSet) WithoutColor() FilterSet {
	out := f.Clone()
	out.Color = nil
	return out
}

// Pairs returns the set entries sorted by key name. Advisory sets are
// sorted and deduplicated so equal sets yield equal pairs.
func (f FilterSet) Pairs() []FilterPair {
	var pairs []FilterPair
	add := func(key string, v any) { pairs = append(pairs, FilterPair{Key: key, Value: v}) }

	if f.Brand != nil {
		add(FilterBrand, *f.Brand)
	}
	if f.Category != nil {
		add(FilterCategory, *f.Category)
	}
	if f.Color != nil {
		add(FilterColor, *f.Color)
	}
	if f.MaxPrice != nil {
		add(FilterMaxPrice, *f.MaxPrice)
	}
	if f.MinPrice != nil {
		add(FilterMinPrice, *f.MinPrice)
	}
	if len(f.PreferredBrands) > 0 {
		add(FilterPreferredBrands, normalizeSet(f.PreferredBrands))
	}
	if len(f.PreferredCategories) > 0 {
		add(FilterPreferredCategories, normalizeSet(f.PreferredCategories))
	}
	if f.TargetAudience != nil {
		add(FilterTargetAudience, *f.TargetAudience)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

func stringValue(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func priceValue(v any) *float64 {
	var p float64
	switch t := v.(type) {
	case float64:
		p = t
	case int:
		p = float64(t)
	case int64:
		p = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		p = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		p = n
	default:
		return nil
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return nil
	}
	return &p
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return nil
	}
}

// normalizeSet trims, drops empties, deduplicates and sorts. It returns nil
// for an empty result so that absent and empty sets compare equal.
func normalizeSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// NormalizeSet is the exported form of the advisory-set normalization.
func NormalizeSet(in []string) []string {
	return normalizeSet(in)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
