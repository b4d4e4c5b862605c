package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EmailQueueMetrics records delivery outcomes for the outbound email queue.
type EmailQueueMetrics struct {
	sent      *prometheus.CounterVec
	retried   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

// NewEmailQueueMetrics registers the email queue metrics on the provided registerer.
func NewEmailQueueMetrics(reg prometheus.Registerer) *EmailQueueMetrics {
	if reg == nil {
		return &EmailQueueMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_sent",
		Help: "Emails delivered by type.",
	}, []string{"type"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_retried",
		Help: "Email send attempts that failed and were rescheduled.",
	}, []string{"type"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "email_exhausted",
		Help: "Email jobs marked failed after the attempt limit.",
	}, []string{"type"})
	reg.MustRegister(sent, retried, exhausted)
	return &EmailQueueMetrics{
		sent:      sent,
		retried:   retried,
		exhausted: exhausted,
	}
}

// IncSent increments the delivered counter for the email type.
func (e *EmailQueueMetrics) IncSent(emailType string) {
	if e == nil || e.sent == nil {
		return
	}
	e.sent.WithLabelValues(normalizeLabel(emailType)).Inc()
}

// IncRetried increments the rescheduled counter for the email type.
func (e *EmailQueueMetrics) IncRetried(emailType string) {
	if e == nil || e.retried == nil {
		return
	}
	e.retried.WithLabelValues(normalizeLabel(emailType)).Inc()
}

// IncExhausted increments the permanent-failure counter for the email type.
func (e *EmailQueueMetrics) IncExhausted(emailType string) {
	if e == nil || e.exhausted == nil {
		return
	}
	e.exhausted.WithLabelValues(normalizeLabel(emailType)).Inc()
}
