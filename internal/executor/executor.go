// Package executor runs structured queries against the index backend and
// degrades every backend failure to an empty result.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/engine"
	"github.com/Daption-ciray/proapp/internal/metrics"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 3 * time.Second

// BreakerConfig configures the circuit breaker around the backend.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	OpenTimeout  time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the breaker settings used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "search-index",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		OpenTimeout:  15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Result is the outcome of one backend call.
type Result struct {
	Hits  []domain.Hit
	Total int
}

// Executor issues exactly one backend call per Execute.
type Executor struct {
	index   engine.Index
	breaker *gobreaker.CircuitBreaker[Result]
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an executor around index. A non-positive timeout selects
// DefaultTimeout.
func New(index engine.Index, timeout time.Duration, cfg BreakerConfig, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up is not a backend fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(0)

	return &Executor{
		index:   index,
		breaker: gobreaker.NewCircuitBreaker[Result](settings),
		timeout: timeout,
		logger:  logger,
	}
}

// Execute runs q and returns the hits ordered by score descending, then price
// ascending. Any backend failure yields an empty slice; it is logged and
// counted but never returned. q is not modified.
func (e *Executor) Execute(ctx context.Context, q domain.StructuredQuery) Result {
	start := time.Now()

	res, err := e.breaker.Execute(func() (Result, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		hits, total, err := e.index.Search(callCtx, q)
		if err != nil {
			return Result{}, err
		}
		return Result{Hits: hits, Total: total}, nil
	})
	metrics.BackendDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		reason := failureReason(err)
		metrics.BackendFailures.WithLabelValues(reason).Inc()
		e.logger.ErrorContext(ctx, "index backend call failed",
			slog.String("reason", reason),
			slog.String("query", q.Text),
			slog.String("error", err.Error()),
		)
		return Result{Hits: []domain.Hit{}}
	}

	if res.Hits == nil {
		res.Hits = []domain.Hit{}
	}
	domain.SortHits(res.Hits)
	if q.Size > 0 && len(res.Hits) > q.Size {
		res.Hits = res.Hits[:q.Size]
	}
	return res
}

// State returns the current breaker state.
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "backend_error"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
