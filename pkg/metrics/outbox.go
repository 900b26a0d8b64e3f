package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutboxResultPublished = "published"
	OutboxResultRetry     = "retry"
	OutboxResultDLQ       = "dlq"
)

// OutboxMetrics counts publisher results.
type OutboxMetrics struct {
	published *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	reg.MustRegister(published)
	return &OutboxMetrics{published: published}
}

func (m *OutboxMetrics) Inc(result string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(result)).Inc()
}
