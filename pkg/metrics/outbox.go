package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics covers the relay from outbox_events to Pub/Sub. A nil value is a no-op.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	batch     prometheus.Histogram
	lag       prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Events delivered to Pub/Sub by event type.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failures_total",
			Help:      "Failed deliveries by event type and whether the row was parked.",
		}, []string{"event_type", "terminal"}),
		batch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_duration_seconds",
			Help:      "Time to publish one polled batch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		lag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "delivery_lag_seconds",
			Help:      "Delay between an event being written and being published.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
	}
	reg.MustRegister(m.published, m.failed, m.batch, m.lag)
	return m
}

func (m *OutboxMetrics) Published(eventType string, lag time.Duration) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(eventType).Inc()
	if lag > 0 {
		m.lag.Observe(lag.Seconds())
	}
}

func (m *OutboxMetrics) Failed(eventType string, terminal bool) {
	if m == nil {
		return
	}
	label := "false"
	if terminal {
		label = "true"
	}
	m.failed.WithLabelValues(eventType, label).Inc()
}

func (m *OutboxMetrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batch.Observe(d.Seconds())
}
