// Package metrics owns the Prometheus registry exposed on /metrics.
//
// All recording methods are safe on a nil *Metrics so components can be
// constructed without metrics in tests and tools.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maternity"

type Metrics struct {
	Registry *prometheus.Registry

	gateDecisions *prometheus.CounterVec
	auditEntries  *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Permission gate decisions by outcome and deny reason.",
		}, []string{"outcome", "reason"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Audit entries appended, by entity kind.",
		}, []string{"kind"}),
		auditFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Swallowed audit failures, by entity kind and pipeline stage.",
		}, []string{"kind", "stage"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gateDecisions,
		m.auditEntries,
		m.auditFailures,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) GateDecision(allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.gateDecisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) AuditWritten(kind string) {
	if m == nil {
		return
	}
	m.auditEntries.WithLabelValues(kind).Inc()
}

func (m *Metrics) AuditFailed(kind, stage string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(kind, stage).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
