package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedStats(s PoolStats) StatsFunc {
	return func() PoolStats { return s }
}

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.Metric {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.Metric, len(families))
	for _, f := range families {
		require.Len(t, f.GetMetric(), 1)
		out[f.GetName()] = f.GetMetric()[0]
	}
	return out
}

func TestPoolStatsCollector_Collect(t *testing.T) {
	c := NewPoolStatsCollector(fixedStats(PoolStats{
		Acquired:       2,
		Idle:           3,
		Total:          5,
		Max:            10,
		AcquireCount:   42,
		AcquireSeconds: 1.5,
	}), "focusbadge")

	metrics := gather(t, c)
	assert.Len(t, metrics, 8)

	assert.Equal(t, 2.0, metrics["db_pool_acquired_connections"].GetGauge().GetValue())
	assert.Equal(t, 10.0, metrics["db_pool_max_connections"].GetGauge().GetValue())
	assert.Equal(t, 42.0, metrics["db_pool_acquire_count_total"].GetCounter().GetValue())
	assert.Equal(t, 1.5, metrics["db_pool_acquire_duration_seconds_total"].GetCounter().GetValue())

	label := metrics["db_pool_total_connections"].GetLabel()
	require.Len(t, label, 1)
	assert.Equal(t, "service", label[0].GetName())
	assert.Equal(t, "focusbadge", label[0].GetValue())
}

func TestPoolStatsCollector_ReadsFreshStatsPerScrape(t *testing.T) {
	var idle int32
	c := NewPoolStatsCollector(func() PoolStats { idle++; return PoolStats{Idle: idle} }, "focusbadge")

	assert.Equal(t, 8, testutil.CollectAndCount(c))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "db_pool_idle_connections", "db_pool_max_connections"))
	assert.Equal(t, int32(2), idle)
}
