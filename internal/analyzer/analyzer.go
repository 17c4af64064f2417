// Package analyzer derives preference summaries from search history.
package analyzer

import (
	"math"
	"sort"

	"github.com/Daption-ciray/proapp/internal/domain"
)

const (
	// Window is the number of most recent history entries considered.
	Window = 100

	// TopN caps the number of categories and brands reported.
	TopN = 5
)

// Analyze summarizes entries, which must be ordered newest first. Only the
// first Window entries are used. Ties in occurrence count are broken by the
// most recent occurrence.
func Analyze(entries []domain.SearchHistoryEntry) domain.PreferenceAnalysis {
	if len(entries) > Window {
		entries = entries[:Window]
	}

	categories := newTally()
	brands := newTally()
	var mins, maxs []float64

	for i, e := range entries {
		if e.Filters.Category != nil {
			categories.add(*e.Filters.Category, i)
		}
		if e.Filters.Brand != nil {
			brands.add(*e.Filters.Brand, i)
		}
		if e.Filters.MinPrice != nil {
			mins = append(mins, *e.Filters.MinPrice)
		}
		if e.Filters.MaxPrice != nil {
			maxs = append(maxs, *e.Filters.MaxPrice)
		}
	}

	out := domain.PreferenceAnalysis{
		TopCategories: []domain.CategoryCount{},
		TopBrands:     []domain.BrandCount{},
		AveragePriceRange: domain.PriceBand{
			Min: mean(mins),
			Max: mean(maxs),
		},
	}
	for _, c := range categories.top(TopN) {
		out.TopCategories = append(out.TopCategories, domain.CategoryCount{Category: c.value, Count: c.count})
	}
	for _, b := range brands.top(TopN) {
		out.TopBrands = append(out.TopBrands, domain.BrandCount{Brand: b.value, Count: b.count})
	}
	return out
}

type tallyEntry struct {
	value string
	count int
	// latest is the index of the most recent occurrence; lower is newer.
	latest int
}

type tally struct {
	entries map[string]*tallyEntry
}

func newTally() *tally {
	return &tally{entries: make(map[string]*tallyEntry)}
}

func (t *tally) add(value string, index int) {
	if value == "" {
		return
	}
	e, ok := t.entries[value]
	if !ok {
		t.entries[value] = &tallyEntry{value: value, count: 1, latest: index}
		return
	}
	e.count++
	if index < e.latest {
		e.latest = index
	}
}

func (t *tally) top(n int) []tallyEntry {
	out := make([]tallyEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		if out[i].latest != out[j].latest {
			return out[i].latest < out[j].latest
		}
		return out[i].value < out[j].value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// mean returns the average of values rounded to two decimals, or nil when
// there are no values.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := math.Round(sum/float64(len(values))*100) / 100
	return &avg
}
