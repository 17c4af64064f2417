// Package engine defines the index backend used to search products.
package engine

import (
	"context"

	"github.com/Daption-ciray/proapp/internal/domain"
)

// MaxSuggestions caps the number of completion suggestions returned.
const MaxSuggestions = 5

// Index executes structured queries against a product index.
// Implementations may use Elasticsearch, bleve, or in-memory storage.
type Index interface {
	// Search returns at most q.Size hits and the total number of matches.
	// Zero matches is not an error.
	Search(ctx context.Context, q domain.StructuredQuery) ([]domain.Hit, int, error)

	// Suggest returns deduplicated completions for prefix.
	Suggest(ctx context.Context, prefix string, limit int) ([]string, error)

	// Ping checks whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Loader bulk-loads products into an index.
type Loader interface {
	BulkIndex(ctx context.Context, products []domain.Product) error
}

// SuggestLimit clamps a requested suggestion count to (0, MaxSuggestions].
func SuggestLimit(limit int) int {
	if limit <= 0 || limit > MaxSuggestions {
		return MaxSuggestions
	}
	return limit
}
