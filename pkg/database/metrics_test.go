package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func describeAll(c prometheus.Collector) []string {
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)
	var out []string
	for d := range ch {
		out = append(out, d.String())
	}
	return out
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	descs := describeAll(NewPoolStatsCollector(nil, "preferences"))

	assert.Len(t, descs, 6)
	for _, name := range []string{
		"search_db_pool_acquired_connections",
		"search_db_pool_idle_connections",
		"search_db_pool_total_connections",
		"search_db_pool_max_connections",
		"search_db_pool_acquires_total",
		"search_db_pool_acquire_wait_seconds_total",
	} {
		found := false
		for _, d := range descs {
			if strings.Contains(d, `"`+name+`"`) {
				found = true
			}
		}
		assert.True(t, found, "missing descriptor %s", name)
	}
}

func TestPoolStatsCollector_NilPoolCollectsNothing(t *testing.T) {
	ch := make(chan prometheus.Metric, 16)
	NewPoolStatsCollector(nil, "preferences").Collect(ch)
	close(ch)
	assert.Empty(t, ch)
}

func TestPoolStatsCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NoError(t, reg.Register(NewPoolStatsCollector(nil, "preferences")))
}
