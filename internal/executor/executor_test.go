package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daption-ciray/proapp/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubIndex is a scriptable engine.Index.
type stubIndex struct {
	calls atomic.Int32
	hits  []domain.Hit
	err   error
	delay time.Duration
	seen  domain.StructuredQuery
}

func (s *stubIndex) Search(ctx context.Context, q domain.StructuredQuery) ([]domain.Hit, int, error) {
	s.calls.Add(1)
	s.seen = q
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, 0, s.err
	}
	out := append([]domain.Hit(nil), s.hits...)
	return out, len(out), nil
}

func (s *stubIndex) Suggest(context.Context, string, int) ([]string, error) { return nil, nil }
func (s *stubIndex) Ping(context.Context) error                            { return s.err }

func newTestExecutor(idx *stubIndex, timeout time.Duration) *Executor {
	cfg := DefaultBreakerConfig()
	cfg.Name = "test-" + time.Now().Format(time.RFC3339Nano)
	return New(idx, timeout, cfg, testLogger())
}

func TestExecute_ReturnsHitsInTieBreakOrder(t *testing.T) {
	idx := &stubIndex{hits: []domain.Hit{
		{Product: domain.Product{ID: "expensive", Price: 3000}, Score: 2},
		{Product: domain.Product{ID: "top", Price: 5000}, Score: 5},
		{Product: domain.Product{ID: "cheap", Price: 1000}, Score: 2},
	}}
	ex := newTestExecutor(idx, time.Second)

	res := ex.Execute(context.Background(), domain.StructuredQuery{Text: "x", Size: 10})
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "top", res.Hits[0].ID)
	assert.Equal(t, "cheap", res.Hits[1].ID)
	assert.Equal(t, "expensive", res.Hits[2].ID)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, int32(1), idx.calls.Load())
}

func TestExecute_BackendErrorDegradesToEmpty(t *testing.T) {
	idx := &stubIndex{err: errors.New("connection refused")}
	ex := newTestExecutor(idx, time.Second)

	res := ex.Execute(context.Background(), domain.StructuredQuery{Size: 10})
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
	assert.Zero(t, res.Total)
}

func TestExecute_TimeoutDegradesToEmpty(t *testing.T) {
	idx := &stubIndex{delay: time.Second, hits: []domain.Hit{{Product: domain.Product{ID: "late"}}}}
	ex := newTestExecutor(idx, 20*time.Millisecond)

	start := time.Now()
	res := ex.Execute(context.Background(), domain.StructuredQuery{Size: 10})
	assert.Empty(t, res.Hits)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecute_ZeroMatchesIsNotAFailure(t *testing.T) {
	idx := &stubIndex{}
	ex := newTestExecutor(idx, time.Second)

	for i := 0; i < 10; i++ {
		res := ex.Execute(context.Background(), domain.StructuredQuery{Size: 10})
		assert.Empty(t, res.Hits)
	}
	assert.Equal(t, gobreaker.StateClosed, ex.State())
}

func TestExecute_BreakerOpensAndFailsFast(t *testing.T) {
	idx := &stubIndex{err: errors.New("boom")}
	ex := newTestExecutor(idx, time.Second)

	for i := 0; i < 5; i++ {
		ex.Execute(context.Background(), domain.StructuredQuery{Size: 10})
	}
	require.Equal(t, gobreaker.StateOpen, ex.State())

	before := idx.calls.Load()
	res := ex.Execute(context.Background(), domain.StructuredQuery{Size: 10})
	assert.Empty(t, res.Hits)
	assert.Equal(t, before, idx.calls.Load(), "open breaker must not reach the backend")
}

func TestExecute_DoesNotMutateQuery(t *testing.T) {
	idx := &stubIndex{}
	ex := newTestExecutor(idx, time.Second)

	q := domain.StructuredQuery{
		Text:   "laptop",
		Terms:  []domain.TermFilter{{Field: domain.FieldBrand, Value: "Lenovo"}},
		Boosts: []domain.TermBoost{{Field: domain.FieldCategory, Values: []string{"Laptop"}, Boost: 1.5}},
		Size:   20,
	}
	ex.Execute(context.Background(), q)

	assert.Equal(t, "laptop", q.Text)
	assert.Equal(t, []domain.TermFilter{{Field: domain.FieldBrand, Value: "Lenovo"}}, q.Terms)
	assert.Equal(t, q, idx.seen)
}

func TestExecute_TruncatesToSize(t *testing.T) {
	idx := &stubIndex{hits: []domain.Hit{
		{Product: domain.Product{ID: "a"}, Score: 3},
		{Product: domain.Product{ID: "b"}, Score: 2},
		{Product: domain.Product{ID: "c"}, Score: 1},
	}}
	ex := newTestExecutor(idx, time.Second)

	res := ex.Execute(context.Background(), domain.StructuredQuery{Size: 2})
	assert.Len(t, res.Hits, 2)
	assert.Equal(t, 3, res.Total)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "circuit_open", failureReason(gobreaker.ErrOpenState))
	assert.Equal(t, "timeout", failureReason(context.DeadlineExceeded))
	assert.Equal(t, "backend_error", failureReason(errors.New("x")))
}
