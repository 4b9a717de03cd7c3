package redis

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exposes the connection pool counters go-redis keeps.
// Clients built from a fake store have no pool and register nothing.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	if c == nil || c.raw == nil || reg == nil {
		return nil
	}
	stats := c.raw.PoolStats
	opts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{Namespace: "ttml", Subsystem: "redis_pool", Name: name, Help: help}
	}
	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: "ttml", Subsystem: "redis_pool", Name: name, Help: help}
	}

	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(opts("total_connections", "Connections currently in the pool."),
			func() float64 { return float64(stats().TotalConns) }),
		prometheus.NewGaugeFunc(opts("idle_connections", "Idle connections in the pool."),
			func() float64 { return float64(stats().IdleConns) }),
		prometheus.NewCounterFunc(counter("hits_total", "Times a free connection was found in the pool."),
			func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(counter("misses_total", "Times a new connection had to be dialed."),
			func() float64 { return float64(stats().Misses) }),
		prometheus.NewCounterFunc(counter("timeouts_total", "Times waiting for a connection timed out."),
			func() float64 { return float64(stats().Timeouts) }),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}
