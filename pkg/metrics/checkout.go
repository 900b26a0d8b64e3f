package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records payment attempts and wizard step transitions.
type CheckoutMetrics struct {
	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_payment_attempts_total",
		Help: "Payment preference requests by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_payment_duration_seconds",
		Help:    "Latency of payment preference requests.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"gateway"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_transitions_total",
		Help: "Checkout step changes.",
	}, []string{"from", "to"})
	reg.MustRegister(attempts, duration, transitions)
	return &CheckoutMetrics{
		attempts:    attempts,
		duration:    duration,
		transitions: transitions,
	}
}

// ObservePayment records one gateway request and how it ended.
func (m *CheckoutMetrics) ObservePayment(gateway, outcome string, elapsed time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(gateway)).Observe(elapsed.Seconds())
}

// IncStepTransition counts a move of the current step.
func (m *CheckoutMetrics) IncStepTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
