// Package metrics exposes Prometheus instrumentation for the chat service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Metrics
// =============================================================================

// Metrics holds the service collectors on a private registry so tests can
// build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// ChatRequests counts chat turns by prompt mode and outcome.
	ChatRequests *prometheus.CounterVec

	// LLMDuration observes model call latency in seconds.
	LLMDuration prometheus.Histogram

	// HistoryAppendFailures counts history writes that were dropped.
	HistoryAppendFailures prometheus.Counter
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nestling",
			Name:      "chat_requests_total",
			Help:      "Chat turns handled, by prompt mode and outcome.",
		}, []string{"mode", "outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nestling",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		HistoryAppendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nestling",
			Name:      "history_append_failures_total",
			Help:      "Chat history writes that failed and were dropped.",
		}),
	}

	reg.MustRegister(
		m.ChatRequests,
		m.LLMDuration,
		m.HistoryAppendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLLM records one model call duration.
func (m *Metrics) ObserveLLM(d time.Duration) {
	if m == nil {
		return
	}
	m.LLMDuration.Observe(d.Seconds())
}

// CountChat records one chat turn.
func (m *Metrics) CountChat(mode, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(mode, outcome).Inc()
}

// CountHistoryFailure records one dropped history write.
func (m *Metrics) CountHistoryFailure() {
	if m == nil {
		return
	}
	m.HistoryAppendFailures.Inc()
}

// Handler returns the scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
