package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailure  = "failure"
)

// DomainMetrics counts checkout, letter generation, email delivery and refill outcomes.
// A nil *DomainMetrics is a no-op.
type DomainMetrics struct {
	checkouts          *prometheus.CounterVec
	letters            *prometheus.CounterVec
	generationDuration prometheus.Histogram
	emails             *prometheus.CounterVec
	refills            prometheus.Counter
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return nil
	}
	m := &DomainMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by plan and outcome.",
		}, []string{"plan", "outcome"}),
		letters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "letter_generations_total",
			Help:      "Letter generation attempts by letter type and outcome.",
		}, []string{"letter_type", "outcome"}),
		generationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "letter_generation_duration_seconds",
			Help:      "Latency of LLM completion calls.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "letter_emails_total",
			Help:      "Letter email deliveries by outcome.",
		}, []string{"outcome"}),
		refills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_refills_total",
			Help:      "Monthly quota refills applied.",
		}),
	}
	reg.MustRegister(m.checkouts, m.letters, m.generationDuration, m.emails, m.refills)
	return m
}

func (m *DomainMetrics) Checkout(plan, outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(plan), normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) LetterGenerated(letterType, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.letters.WithLabelValues(normalizeLabel(letterType), normalizeLabel(outcome)).Inc()
	if took > 0 {
		m.generationDuration.Observe(took.Seconds())
	}
}

func (m *DomainMetrics) EmailDelivery(outcome string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *DomainMetrics) Refilled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.refills.Add(float64(n))
}
