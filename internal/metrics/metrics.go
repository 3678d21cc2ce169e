// Package metrics provides Prometheus metrics for the backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the backend.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ExtractionsTotal *prometheus.CounterVec
	StateSyncsTotal  *prometheus.CounterVec
	SessionsActive   prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "architect_requests_total",
				Help: "Total number of API requests by route and status.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "architect_request_duration_seconds",
				Help:    "Request processing duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ExtractionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "architect_extractions_total",
				Help: "Total extraction attempts by result.",
			},
			[]string{"result"},
		),
		StateSyncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "architect_state_syncs_total",
				Help: "Total user-state writes by result.",
			},
			[]string{"result"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "architect_sessions_active",
				Help: "Number of registered sessions.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.ExtractionsTotal)
	reg.MustRegister(m.StateSyncsTotal)
	reg.MustRegister(m.SessionsActive)

	return m
}

// Registry returns the underlying registry (for testing).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// ObserveDuration records request duration.
func (m *Metrics) ObserveDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordExtraction increments the extraction counter.
func (m *Metrics) RecordExtraction(result string) {
	m.ExtractionsTotal.WithLabelValues(result).Inc()
}

// RecordStateSync increments the state-write counter.
func (m *Metrics) RecordStateSync(result string) {
	m.StateSyncsTotal.WithLabelValues(result).Inc()
}

// SetSessions sets the active session count.
func (m *Metrics) SetSessions(count float64) {
	m.SessionsActive.Set(count)
}
