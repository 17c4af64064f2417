// Package metrics holds the Prometheus collectors of the search engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts result cache lookups by outcome (hit, miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_cache_lookups_total",
			Help: "Total number of search result cache lookups",
		},
		[]string{"outcome"},
	)

	// CacheUnavailable is 1 when the cache backend failed its startup probe.
	CacheUnavailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_cache_unavailable",
			Help: "Whether the result cache is disabled because its backend was unreachable",
		},
	)

	// RelaxationOutcomes counts which relaxation tier produced the response.
	RelaxationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_relaxation_outcomes_total",
			Help: "Total number of searches by relaxation outcome",
		},
		[]string{"relaxation"},
	)

	// BackendFailures counts index backend calls that failed and were
	// degraded to an empty result.
	BackendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_backend_failures_total",
			Help: "Total number of failed index backend calls",
		},
		[]string{"reason"},
	)

	// BackendDuration observes index backend call latency.
	BackendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_backend_duration_seconds",
			Help:    "Duration of index backend calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BreakerState is the current executor circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "search_circuit_breaker_state",
			Help: "Current state of the index backend circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HistoryAppendFailures counts history records that could not be persisted.
	HistoryAppendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_history_append_failures_total",
			Help: "Total number of search history records that failed to persist",
		},
		[]string{"sink"},
	)

	// PreferenceFetchFailures counts personalization lookups that fell back
	// to the unpersonalized filter set.
	PreferenceFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_preference_fetch_failures_total",
			Help: "Total number of preference lookups that failed during personalization",
		},
	)
)
