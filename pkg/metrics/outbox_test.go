package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsCountsByEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.Published("letter.generated", 2*time.Second)
	m.Published("letter.generated", 0)
	m.Failed("letter.generated", false)
	m.Failed("subscription.created", true)
	m.ObserveBatch(120 * time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	published, err := fetchCounterValue(mfs, "ttml_outbox_published_total", "event_type", "letter.generated")
	require.NoError(t, err)
	assert.Equal(t, 2.0, published)

	parked, err := fetchCounterValue(mfs, "ttml_outbox_failures_total", "terminal", "true")
	require.NoError(t, err)
	assert.Equal(t, 1.0, parked)

	lag := findMetricFamily(mfs, "ttml_outbox_delivery_lag_seconds")
	require.NotNil(t, lag)
	assert.EqualValues(t, 1, lag.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilOutboxMetricsIsNoop(t *testing.T) {
	var m *OutboxMetrics
	assert.Nil(t, NewOutboxMetrics(nil))
	assert.NotPanics(t, func() {
		m.Published("letter.generated", time.Second)
		m.Failed("letter.generated", true)
		m.ObserveBatch(time.Second)
	})
}
