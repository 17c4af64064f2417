// Package memory implements engine.Index in process memory. It is used for
// development without an external cluster and as the backend of service
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/engine"
)

// fuzzyWeight scales the contribution of a fuzzy (non-exact) token match.
const fuzzyWeight = 0.5

// Engine is an in-memory implementation of engine.Index.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

var (
	_ engine.Index  = (*Engine)(nil)
	_ engine.Loader = (*Engine)(nil)
)

// New creates an empty in-memory index.
func New() *Engine {
	return &Engine{
		products: make(map[string]domain.Product),
	}
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

// Len returns the number of indexed products.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.products)
}

// BulkIndex adds or updates products.
func (e *Engine) BulkIndex(_ context.Context, products []domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range products {
		e.products[products[i].ID] = products[i]
	}
	return nil
}

// Search scores every product against q. Full-text matching is token based
// with per-field weights; terms and the price range are hard filters; boosts
// add to the score of matching documents.
func (e *Engine) Search(ctx context.Context, q domain.StructuredQuery) ([]domain.Hit, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	queryTokens := tokenize(q.Text)
	matched := make([]domain.Hit, 0)

	for _, p := range e.products {
		if !passesFilters(p, q) {
			continue
		}

		score := 1.0
		if !q.MatchAll() {
			score = textScore(p, q, queryTokens)
			if score == 0 {
				continue
			}
		}
		score += boostScore(p, q.Boosts)

		matched = append(matched, domain.Hit{Product: p, Score: score})
	}

	// Map iteration is random; order by ID first so equal score and price
	// ties are stable between calls.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	domain.SortHits(matched)

	total := len(matched)
	size := q.Size
	if size <= 0 {
		size = domain.DefaultResultSize
	}
	if size > domain.MaxResultSize {
		size = domain.MaxResultSize
	}
	if len(matched) > size {
		matched = matched[:size]
	}

	return matched, total, nil
}

// Suggest returns distinct brand, model and category values starting with
// prefix, case-insensitively, in alphabetical order.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	limit = engine.SuggestLimit(limit)

	e.mu.RLock()
	seen := make(map[string]struct{})
	var candidates []string
	for _, p := range e.products {
		for _, v := range []string{p.Brand, p.Model, p.Category} {
			if v == "" || !strings.HasPrefix(strings.ToLower(v), prefix) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			candidates = append(candidates, v)
		}
	}
	e.mu.RUnlock()

	sort.Strings(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if candidates == nil {
		candidates = []string{}
	}
	return candidates, nil
}

func passesFilters(p domain.Product, q domain.StructuredQuery) bool {
	for _, t := range q.Terms {
		if fieldValue(p, t.Field) != t.Value {
			return false
		}
	}
	return q.PriceRange.Contains(p.Price)
}

// textScore follows best_fields semantics: the best scoring field wins.
func textScore(p domain.Product, q domain.StructuredQuery, queryTokens []string) float64 {
	var best float64
	for _, f := range q.Fields {
		fieldTokens := tokenize(fieldValue(p, f.Field))
		var s float64
		for _, qt := range queryTokens {
			s += tokenScore(qt, fieldTokens, q.Fuzziness != "")
		}
		if s *= f.Boost; s > best {
			best = s
		}
	}
	return best
}

func tokenScore(queryToken string, fieldTokens []string, fuzzy bool) float64 {
	var best float64
	for _, ft := range fieldTokens {
		if ft == queryToken {
			return 1
		}
		if fuzzy && withinFuzziness(queryToken, ft) {
			best = fuzzyWeight
		}
	}
	return best
}

func boostScore(p domain.Product, boosts []domain.TermBoost) float64 {
	var s float64
	for _, b := range boosts {
		v := fieldValue(p, b.Field)
		for _, want := range b.Values {
			if v == want {
				s += b.Boost
				break
			}
		}
	}
	return s
}

func fieldValue(p domain.Product, field string) string {
	switch field {
	case domain.FieldBrand:
		return p.Brand
	case domain.FieldModel:
		return p.Model
	case domain.FieldCategory:
		return p.Category
	case domain.FieldTargetAudience:
		return p.TargetAudience
	case domain.FieldColor:
		return p.Color
	case domain.FieldDescription:
		return p.Description
	default:
		return ""
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// withinFuzziness applies AUTO fuzziness (domain.AutoEdits) with a one-rune
// exact prefix.
func withinFuzziness(a, b string) bool {
	maxEdits := domain.AutoEdits(a)
	if maxEdits == 0 {
		return false
	}
	ra, rb := []rune(a), []rune(b)
	if len(rb) == 0 || ra[0] != rb[0] {
		return false
	}
	if d := len(ra) - len(rb); d > maxEdits || -d > maxEdits {
		return false
	}
	return levenshtein(ra, rb) <= maxEdits
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
