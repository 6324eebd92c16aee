package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments on the default Prometheus
// registry, scraped via /metrics.
type Metrics struct {
	webhookOutcomes *prometheus.CounterVec
	webhookErrors   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookbill_webhook_outcomes_total",
			Help: "Webhook deliveries reconciled, by provider and outcome token.",
		}, []string{"provider", "outcome"}),
		webhookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookbill_webhook_errors_total",
			Help: "Webhook deliveries rejected, by provider and error token.",
		}, []string{"provider", "error"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hookbill_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
	}

	prometheus.MustRegister(m.webhookOutcomes, m.webhookErrors, m.httpRequests)
	return m
}

// RecordWebhookOutcome counts a successfully reconciled delivery.
func (m *Metrics) RecordWebhookOutcome(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookOutcomes.WithLabelValues(normalize(provider), normalize(outcome)).Inc()
}

// RecordWebhookError counts a rejected delivery.
func (m *Metrics) RecordWebhookError(provider, token string) {
	if m == nil {
		return
	}
	m.webhookErrors.WithLabelValues(normalize(provider), normalize(token)).Inc()
}

// RecordHTTPRequest counts one served request.
func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(normalize(route), normalize(status)).Inc()
}

func normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
