// Package service implements the search and preference use cases.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Daption-ciray/proapp/internal/cache"
	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/engine"
	"github.com/Daption-ciray/proapp/internal/history"
	"github.com/Daption-ciray/proapp/internal/metrics"
	"github.com/Daption-ciray/proapp/internal/personalization"
	"github.com/Daption-ciray/proapp/internal/relax"
	apperrors "github.com/Daption-ciray/proapp/pkg/errors"
)

const tracerName = "github.com/Daption-ciray/proapp/internal/service"

// DefaultSuggestTimeout bounds a suggestion lookup.
const DefaultSuggestTimeout = time.Second

// SearchService answers search and suggestion requests.
type SearchService struct {
	index    engine.Index
	relaxer  *relax.Controller
	merger   *personalization.Merger
	cache    cache.Cache
	cacheTTL time.Duration
	recorder history.Recorder
	logger   *slog.Logger
}

// NewSearchService wires the search pipeline. searcher issues the backend
// queries (normally an *executor.Executor around index). A nil cache or
// recorder disables caching or history.
func NewSearchService(
	index engine.Index,
	searcher relax.Searcher,
	merger *personalization.Merger,
	c cache.Cache,
	cacheTTL time.Duration,
	recorder history.Recorder,
	logger *slog.Logger,
) *SearchService {
	if c == nil {
		c = cache.Nop{}
	}
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}
	if recorder == nil {
		recorder = history.Nop{}
	}
	if merger == nil {
		merger = personalization.NewMerger(nil, logger)
	}
	return &SearchService{
		index:    index,
		relaxer:  relax.NewController(searcher, logger),
		merger:   merger,
		cache:    c,
		cacheTTL: cacheTTL,
		recorder: recorder,
		logger:   logger,
	}
}

// Search runs req for userID (empty for anonymous requests). It never
// fails: backend, cache and preference store problems degrade to fewer or
// no results.
//
// The backend is always asked for up to domain.MaxResultSize hits so that
// the cached entry serves any requested limit; the response is cut to the
// request's effective limit.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest, userID string) domain.RankedResults {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "SearchService.Search",
		trace.WithAttributes(
			attribute.String("search.query", req.Query),
			attribute.Bool("search.personalized", userID != ""),
		),
	)
	defer span.End()

	limit := req.EffectiveLimit()
	filters := s.merger.Apply(ctx, req.Filters, userID)
	key := cache.Key(req.Query, filters)

	var res domain.RankedResults
	if entry, ok := s.cache.Get(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		res = domain.RankedResults{
			Hits:       entry.Hits,
			Total:      entry.Total,
			Relaxation: entry.Relaxation,
			Cached:     true,
		}
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		out := s.relaxer.Run(ctx, domain.SearchRequest{
			Query:   req.Query,
			Filters: filters,
			Limit:   domain.MaxResultSize,
		})
		res = domain.RankedResults{
			Hits:       out.Result.Hits,
			Total:      out.Result.Total,
			Relaxation: out.Relaxation,
		}
		metrics.RelaxationOutcomes.WithLabelValues(string(res.Relaxation)).Inc()

		// Only non-empty results are cached; a failed backend call also
		// comes back empty.
		if len(res.Hits) > 0 {
			s.cache.Set(ctx, key, &cache.Entry{
				Hits:       res.Hits,
				Total:      res.Total,
				Relaxation: res.Relaxation,
			}, s.cacheTTL)
		}
	}

	if res.Hits == nil {
		res.Hits = []domain.Hit{}
	}
	if len(res.Hits) > limit {
		res.Hits = res.Hits[:limit]
	}

	span.SetAttributes(
		attribute.Int("search.results", len(res.Hits)),
		attribute.String("search.relaxation", string(res.Relaxation)),
		attribute.Bool("search.cached", res.Cached),
	)
	s.logger.InfoContext(ctx, "search completed",
		slog.String("query", req.Query),
		slog.Int("results", len(res.Hits)),
		slog.Int("total", res.Total),
		slog.String("relaxation", string(res.Relaxation)),
		slog.Bool("cached", res.Cached),
	)

	s.recorder.Record(ctx, domain.SearchHistoryEntry{
		UserID:       userID,
		Query:        req.Query,
		Filters:      req.Filters,
		ResultsCount: len(res.Hits),
	})

	return res
}

// Suggest returns up to engine.MaxSuggestions completions for prefix. A
// failing backend yields an empty list.
func (s *SearchService) Suggest(ctx context.Context, prefix string) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultSuggestTimeout)
	defer cancel()

	out, err := s.index.Suggest(ctx, prefix, engine.MaxSuggestions)
	if err != nil {
		s.logger.WarnContext(ctx, "suggest failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// ImportProducts validates products and bulk-loads them into the index.
func (s *SearchService) ImportProducts(ctx context.Context, products []domain.Product) error {
	loader, ok := s.index.(engine.Loader)
	if !ok {
		return apperrors.InvalidInput("index backend does not support bulk loading")
	}
	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return apperrors.InvalidInput(fmt.Sprintf("product %d: %s", i, err))
		}
	}
	if err := loader.BulkIndex(ctx, products); err != nil {
		return fmt.Errorf("import products: %w", err)
	}
	s.logger.InfoContext(ctx, "products imported", slog.Int("count", len(products)))
	return nil
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("id is required")
	case strings.TrimSpace(p.Brand) == "":
		return fmt.Errorf("brand is required")
	case strings.TrimSpace(p.Model) == "":
		return fmt.Errorf("model is required")
	case p.Price < 0:
		return fmt.Errorf("price must not be negative")
	default:
		return nil
	}
}
