// Package relax retries empty searches with progressively looser filters.
//
// The sequence is a fixed state machine:
//
//	Initial -> ColorRelaxed -> BrandFallback -> Exhausted
//
// Tiers run strictly one after another and only the results of the first
// tier that finds anything are returned.
package relax

import (
	"context"
	"log/slog"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/executor"
	"github.com/Daption-ciray/proapp/internal/query"
)

// State is a step of the relaxation sequence.
type State string

const (
	StateInitial       State = "initial"
	StateColorRelaxed  State = "color_relaxed"
	StateBrandFallback State = "brand_fallback"
	StateExhausted     State = "exhausted"

	stateDone State = ""
)

// Searcher runs one structured query.
type Searcher interface {
	Execute(ctx context.Context, q domain.StructuredQuery) executor.Result
}

// Outcome is the final result of a relaxation run.
type Outcome struct {
	Result     executor.Result
	Relaxation domain.Relaxation
	// Visited lists the states entered, in order.
	Visited []State
}

// Controller drives the relaxation state machine.
type Controller struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewController creates a controller issuing queries through searcher.
func NewController(searcher Searcher, logger *slog.Logger) *Controller {
	return &Controller{searcher: searcher, logger: logger}
}

// Run executes req and relaxes it while it keeps returning nothing.
func (c *Controller) Run(ctx context.Context, req domain.SearchRequest) Outcome {
	m := &machine{
		ctx:     ctx,
		c:       c,
		req:     req,
		filters: req.Filters.Clone(),
		outcome: Outcome{Relaxation: domain.RelaxationNone},
	}

	for st := StateInitial; st != stateDone; st = m.step(st) {
		m.outcome.Visited = append(m.outcome.Visited, st)
	}

	if m.outcome.Result.Hits == nil {
		m.outcome.Result.Hits = []domain.Hit{}
	}
	return m.outcome
}

// machine holds the state of a single run.
type machine struct {
	ctx     context.Context
	c       *Controller
	req     domain.SearchRequest
	filters domain.FilterSet
	outcome Outcome
}

func (m *machine) step(st State) State {
	switch st {
	case StateInitial:
		return m.initial()
	case StateColorRelaxed:
		return m.colorRelaxed()
	case StateBrandFallback:
		return m.brandFallback()
	case StateExhausted:
		return m.exhausted()
	default:
		return stateDone
	}
}

func (m *machine) initial() State {
	res := m.c.searcher.Execute(m.ctx, query.Build(m.request(m.filters)))
	if len(res.Hits) > 0 {
		m.finish(res, domain.RelaxationNone)
		return stateDone
	}

	// Nothing to loosen: an empty answer to an unfiltered query is final.
	if !m.filters.HasConcreteFilter() {
		m.finish(res, domain.RelaxationNone)
		return stateDone
	}
	return StateColorRelaxed
}

func (m *machine) colorRelaxed() State {
	if m.filters.Color == nil {
		return StateBrandFallback
	}

	relaxed := m.filters.WithoutColor()
	res := m.c.searcher.Execute(m.ctx, query.Build(m.request(relaxed)))
	if len(res.Hits) > 0 {
		m.c.logger.InfoContext(m.ctx, "search relaxed by dropping color",
			slog.String("color", *m.filters.Color),
			slog.Int("hits", len(res.Hits)),
		)
		m.finish(res, domain.RelaxationColor)
		return stateDone
	}
	return StateBrandFallback
}

func (m *machine) brandFallback() State {
	if m.filters.Brand == nil {
		return StateExhausted
	}

	res := m.c.searcher.Execute(m.ctx, query.BrandOnly(*m.filters.Brand))
	if len(res.Hits) > 0 {
		m.c.logger.InfoContext(m.ctx, "search relaxed to brand-only text query",
			slog.String("brand", *m.filters.Brand),
			slog.Int("hits", len(res.Hits)),
		)
		m.finish(res, domain.RelaxationBrandOnly)
		return stateDone
	}
	return StateExhausted
}

func (m *machine) exhausted() State {
	m.finish(executor.Result{Hits: []domain.Hit{}}, domain.RelaxationExhausted)
	return stateDone
}

func (m *machine) finish(res executor.Result, r domain.Relaxation) {
	m.outcome.Result = res
	m.outcome.Relaxation = r
}

func (m *machine) request(f domain.FilterSet) domain.SearchRequest {
	return domain.SearchRequest{
		Query:   m.req.Query,
		Filters: f,
		Limit:   m.req.Limit,
	}
}
