// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Low-stock run outcomes
const (
	OutcomeNoLowStock = "no_low_stock"
	OutcomeNoAdmins   = "no_admins"
	OutcomeSent       = "sent"
	OutcomeFailed     = "failed"
)

// Email delivery results
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Photo cleanup operations
const (
	CleanupReplace = "replace"
	CleanupDelete  = "delete"
	CleanupDiscard = "discard"
)

// Metrics groups the collectors the server updates
type Metrics struct {
	registry *prometheus.Registry

	lowStockRuns   *prometheus.CounterVec
	lowStockEmails *prometheus.CounterVec
	photoCleanup   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds a private registry with the process and Go collectors attached
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegisterer(registry, registry)
}

// NewWithRegisterer registers the collectors on reg. registry may be nil when
// the caller serves metrics itself.
func NewWithRegisterer(reg prometheus.Registerer, registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		lowStockRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edstock_lowstock_runs_total",
			Help: "Low-stock notifier runs by outcome.",
		}, []string{"outcome"}),
		lowStockEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edstock_lowstock_emails_total",
			Help: "Low-stock report emails by delivery result.",
		}, []string{"result"}),
		photoCleanup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edstock_photo_cleanup_failures_total",
			Help: "Best-effort photo removals that failed, by operation.",
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edstock_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edstock_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.lowStockRuns, m.lowStockEmails, m.photoCleanup, m.httpRequests, m.httpDuration)
	return m
}

// Registry returns the registry backing /metrics, or nil
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) LowStockRun(outcome string) {
	if m == nil {
		return
	}
	m.lowStockRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LowStockEmail(result string) {
	if m == nil {
		return
	}
	m.lowStockEmails.WithLabelValues(result).Inc()
}

func (m *Metrics) PhotoCleanupFailed(op string) {
	if m == nil {
		return
	}
	m.photoCleanup.WithLabelValues(op).Inc()
}

// ObserveRequest records one served request
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
