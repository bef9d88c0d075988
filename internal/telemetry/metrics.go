// Package telemetry records what the analysis calls did: Prometheus metrics,
// InfluxDB outcome points and MQTT outcome notifications.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/agrisense/internal/model/messages"
)

const namespace = "agrisense"

// Metrics implements executor.Observer and orchestrator.Recorder.
// A nil *Metrics is a no-op.
type Metrics struct {
	reg        *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	superseded *prometheus.CounterVec
	analyses   *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP attempts against the inference service by outcome.",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of single HTTP attempts.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries scheduled after a 429 response.",
		}, []string{"endpoint"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_total",
			Help:      "Calls whose outcome was discarded because a newer call started.",
		}, []string{"operation"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Committed analysis outcomes; kind is \"ok\" on success.",
		}, []string{"operation", "kind"}),
	}
	m.reg.MustRegister(m.requests, m.duration, m.retries, m.superseded, m.analyses)
	return m
}

func (m *Metrics) Request(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) Retry(endpoint string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) Record(_ context.Context, evt messages.AnalysisOutcomeEvent) {
	if m == nil {
		return
	}
	switch evt.Outcome {
	case messages.OutcomeSuperseded:
		m.superseded.WithLabelValues(evt.Operation).Inc()
	case messages.OutcomeSucceeded:
		m.analyses.WithLabelValues(evt.Operation, "ok").Inc()
	default:
		m.analyses.WithLabelValues(evt.Operation, evt.Kind).Inc()
	}
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
