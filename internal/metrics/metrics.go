// Package metrics exposes Prometheus instruments for the session reconciler
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zkdash"

// Metrics holds every instrument registered on a single registry.
type Metrics struct {
	registry *prometheus.Registry

	inputs   *prometheus.CounterVec
	builds   *prometheus.CounterVec
	drifts   prometheus.Counter
	drops    prometheus.Counter
	phase    *prometheus.GaugeVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the instruments on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inputs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconciler",
				Name:      "inputs_total",
				Help:      "Inputs processed by the session reconciler.",
			},
			[]string{"input"},
		),
		builds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconciler",
				Name:      "builds_total",
				Help:      "Session builds by outcome.",
			},
			[]string{"outcome"},
		),
		drifts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "drifts_total",
			Help:      "Sessions discarded because the provider switched accounts.",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "dropped_inputs_total",
			Help:      "Inputs dropped on a full mailbox.",
		}),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconciler",
				Name:      "phase",
				Help:      "1 for the current connection phase, 0 otherwise.",
			},
			[]string{"phase"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inputs, m.builds, m.drifts, m.drops, m.phase, m.requests, m.duration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Build outcomes.
const (
	BuildStarted   = "started"
	BuildSucceeded = "succeeded"
	BuildFailed    = "failed"
	BuildCancelled = "cancelled"
)

// RecordInput counts one reconciler input by type name.
func (m *Metrics) RecordInput(name string) {
	if m == nil {
		return
	}
	m.inputs.WithLabelValues(name).Inc()
}

// RecordBuild counts a build lifecycle event.
func (m *Metrics) RecordBuild(outcome string) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(outcome).Inc()
}

// RecordDrift counts one discarded session.
func (m *Metrics) RecordDrift() {
	if m == nil {
		return
	}
	m.drifts.Inc()
}

// RecordDrop counts one dropped input.
func (m *Metrics) RecordDrop() {
	if m == nil {
		return
	}
	m.drops.Inc()
}

// SetPhase marks phase as current and clears prev.
func (m *Metrics) SetPhase(prev, phase string) {
	if m == nil {
		return
	}
	if prev != "" && prev != phase {
		m.phase.WithLabelValues(prev).Set(0)
	}
	m.phase.WithLabelValues(phase).Set(1)
}

// RecordHTTPRequest counts and times one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := strconv.Itoa(status)
	m.requests.WithLabelValues(method, path, label).Inc()
	m.duration.WithLabelValues(method, path, label).Observe(d.Seconds())
}
