// Package cache defines the query-result cache used by the search service.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// KeyPrefix namespaces all search result keys.
const KeyPrefix = "search:"

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = 24 * time.Hour

// Entry is the cached form of a search outcome.
type Entry struct {
	Hits       []domain.Hit      `json:"hits"`
	Total      int               `json:"total"`
	Relaxation domain.Relaxation `json:"relaxation"`
}

// Cache stores search results. Implementations never surface errors to the
// caller: a failed read is a miss and a failed write is dropped.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration)
}

// Key derives the cache key for a request. Equal (query, filters) pairs
// produce equal keys regardless of the order filters were supplied in.
func Key(query string, filters domain.FilterSet) string {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteString(NormalizeQuery(query))
	b.WriteByte(':')
	b.Write(encodePairs(filters.Pairs()))
	return b.String()
}

// NormalizeQuery lower-cases and trims the query; the match-all sentinel
// normalizes to the empty string.
func NormalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == domain.MatchAllQuery {
		return ""
	}
	return q
}

// encodePairs renders pairs as a JSON array of [key, value] tuples. The pairs
// are already sorted, so the output is deterministic.
func encodePairs(pairs []domain.FilterPair) []byte {
	tuples := make([][2]any, 0, len(pairs))
	for _, p := range pairs {
		tuples = append(tuples, [2]any{p.Key, p.Value})
	}
	data, err := json.Marshal(tuples)
	if err != nil {
		return []byte("[]")
	}
	return data
}

// Nop is a Cache that never stores anything.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string) (*Entry, bool) { return nil, false }

// Set discards the entry.
func (Nop) Set(context.Context, string, *Entry, time.Duration) {}
