package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool connection statistics for the
// preference store.
type PoolStatsCollector struct {
	pool  *pgxpool.Pool
	store string

	acquired    *prometheus.Desc
	idle        *prometheus.Desc
	total       *prometheus.Desc
	max         *prometheus.Desc
	acquires    *prometheus.Desc
	waitSeconds *prometheus.Desc
}

// NewPoolStatsCollector returns a collector labelled with store.
func NewPoolStatsCollector(pool *pgxpool.Pool, store string) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("search_db_pool_"+name, help, []string{"store"}, nil)
	}
	return &PoolStatsCollector{
		pool:        pool,
		store:       store,
		acquired:    desc("acquired_connections", "Connections currently checked out."),
		idle:        desc("idle_connections", "Connections currently idle."),
		total:       desc("total_connections", "Connections currently open."),
		max:         desc("max_connections", "Configured connection limit."),
		acquires:    desc("acquires_total", "Connection acquires since start."),
		waitSeconds: desc("acquire_wait_seconds_total", "Time spent acquiring connections."),
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquires
	ch <- c.waitSeconds
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	s := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns()), c.store)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns()), c.store)
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns()), c.store)
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns()), c.store)
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount()), c.store)
	ch <- prometheus.MustNewConstMetric(c.waitSeconds, prometheus.CounterValue, s.AcquireDuration().Seconds(), c.store)
}
