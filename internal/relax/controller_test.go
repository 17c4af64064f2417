package relax

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/engine/memory"
	"github.com/Daption-ciray/proapp/internal/executor"
	"github.com/Daption-ciray/proapp/internal/query"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSearcher runs queries against an in-memory index and records them.
type recordingSearcher struct {
	index   *memory.Engine
	queries []domain.StructuredQuery
}

func (r *recordingSearcher) Execute(ctx context.Context, q domain.StructuredQuery) executor.Result {
	r.queries = append(r.queries, q)
	hits, total, err := r.index.Search(ctx, q)
	if err != nil {
		return executor.Result{Hits: []domain.Hit{}}
	}
	return executor.Result{Hits: hits, Total: total}
}

func newSearcher(t *testing.T) *recordingSearcher {
	t.Helper()
	idx := memory.New()
	require.NoError(t, idx.BulkIndex(context.Background(), []domain.Product{
		{ID: "n1", Brand: "Nike", Model: "Air Zoom", Price: 2400, Category: "Ayakkabı", Color: "siyah"},
		{ID: "n2", Brand: "Nike", Model: "Revolution", Price: 1500, Category: "Ayakkabı", Color: "beyaz"},
		{ID: "z1", Brand: "Zara", Model: "Oversize", Price: 899, Category: "Elbise", Color: "mavi"},
		{ID: "z2", Brand: "Zara", Model: "Basic Tişört", Price: 299, Category: "Tişört", Color: "beyaz"},
		{ID: "l1", Brand: "Lenovo", Model: "IdeaPad", Price: 18999, Category: "Laptop"},
	}))
	return &recordingSearcher{index: idx}
}

func ids(hits []domain.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

func TestRun_InitialHitsAreReturnedUnrelaxed(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "ayakkabı",
		Filters: domain.FilterSet{Brand: domain.StringPtr("Nike")},
	})

	assert.Equal(t, domain.RelaxationNone, out.Relaxation)
	assert.ElementsMatch(t, []string{"n1", "n2"}, ids(out.Result.Hits))
	assert.Equal(t, []State{StateInitial}, out.Visited)
	assert.Len(t, s.queries, 1)
}

func TestRun_ColorDroppedForNikeRed(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "ayakkabı",
		Filters: domain.FilterSet{Brand: domain.StringPtr("Nike"), Color: domain.StringPtr("kırmızı")},
	})

	assert.Equal(t, domain.RelaxationColor, out.Relaxation)
	assert.Equal(t, []string{"n2", "n1"}, ids(out.Result.Hits), "equal scores order by price")
	assert.Equal(t, []State{StateInitial, StateColorRelaxed}, out.Visited)

	require.Len(t, s.queries, 2)
	for _, term := range s.queries[1].Terms {
		assert.NotEqual(t, domain.FieldColor, term.Field)
	}
	assert.Contains(t, s.queries[1].Terms, domain.TermFilter{Field: domain.FieldBrand, Value: "Nike"})
}

func TestRun_BrandFallbackIsUnfilteredTextQuery(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query: "ayakkabı",
		Filters: domain.FilterSet{
			Brand:    domain.StringPtr("Nike"),
			Color:    domain.StringPtr("kırmızı"),
			MaxPrice: domain.FloatPtr(100),
		},
	})

	assert.Equal(t, domain.RelaxationBrandOnly, out.Relaxation)
	assert.Equal(t, []State{StateInitial, StateColorRelaxed, StateBrandFallback}, out.Visited)
	assert.ElementsMatch(t, []string{"n1", "n2"}, ids(out.Result.Hits))

	require.Len(t, s.queries, 3)
	assert.Equal(t, query.BrandOnly("Nike"), s.queries[2])
}

func TestRun_BrandFallbackIgnoresCategory(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "ayakkabı",
		Filters: domain.FilterSet{Brand: domain.StringPtr("Zara"), Category: domain.StringPtr("Ayakkabı")},
	})

	// Zara sells no shoes, but the brand-only tier drops the category filter.
	assert.Equal(t, domain.RelaxationBrandOnly, out.Relaxation)
	assert.Equal(t, []State{StateInitial, StateColorRelaxed, StateBrandFallback}, out.Visited)
}

func TestRun_ExhaustedWhenNoTierMatches(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "ayakkabı",
		Filters: domain.FilterSet{Brand: domain.StringPtr("Mavi"), Color: domain.StringPtr("kırmızı")},
	})

	assert.Equal(t, domain.RelaxationExhausted, out.Relaxation)
	assert.NotNil(t, out.Result.Hits)
	assert.Empty(t, out.Result.Hits)
	assert.Equal(t, []State{StateInitial, StateColorRelaxed, StateBrandFallback, StateExhausted}, out.Visited)
}

func TestRun_ColorOnlySkipsBrandFallback(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "laptop",
		Filters: domain.FilterSet{Color: domain.StringPtr("pembe"), MinPrice: domain.FloatPtr(50000)},
	})

	assert.Equal(t, domain.RelaxationExhausted, out.Relaxation)
	assert.Len(t, s.queries, 2, "no brand, so no brand fallback query")
}

func TestRun_NoConcreteFiltersIsNotRelaxed(t *testing.T) {
	s := newSearcher(t)
	out := NewController(s, testLogger()).Run(context.Background(), domain.SearchRequest{
		Query:   "buzdolabı",
		Filters: domain.FilterSet{PreferredBrands: []string{"Nike"}},
	})

	assert.Equal(t, domain.RelaxationNone, out.Relaxation)
	assert.Empty(t, out.Result.Hits)
	assert.Equal(t, []State{StateInitial}, out.Visited)
	assert.Len(t, s.queries, 1)
}

func TestRun_ColorRelaxedNeverNarrows(t *testing.T) {
	s := newSearcher(t)
	base := domain.FilterSet{Brand: domain.StringPtr("Nike"), Color: domain.StringPtr("siyah")}

	exact, _, err := s.index.Search(context.Background(), query.Build(domain.SearchRequest{Query: "ayakkabı", Filters: base}))
	require.NoError(t, err)
	relaxed, _, err := s.index.Search(context.Background(), query.Build(domain.SearchRequest{Query: "ayakkabı", Filters: base.WithoutColor()}))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(relaxed), len(exact))
}

func TestRun_DoesNotMutateRequest(t *testing.T) {
	s := newSearcher(t)
	req := domain.SearchRequest{
		Query:   "ayakkabı",
		Filters: domain.FilterSet{Brand: domain.StringPtr("Nike"), Color: domain.StringPtr("kırmızı")},
	}
	NewController(s, testLogger()).Run(context.Background(), req)

	require.NotNil(t, req.Filters.Color)
	assert.Equal(t, "kırmızı", *req.Filters.Color)
}
