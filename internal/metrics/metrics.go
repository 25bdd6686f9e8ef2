// Package metrics exposes prometheus instrumentation for loads, renders and
// HTTP requests on the admin listener.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"deview/domain/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load sources.
const (
	SourceUpload  = "upload"
	SourceFile    = "file"
	SourceCatalog = "catalog"
)

// Metrics owns a private registry so tests and multiple servers do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	loads        *prometheus.CounterVec
	loadDuration prometheus.Histogram
	loadedRows   prometheus.Histogram
	excluded     prometheus.Counter
	sessions     prometheus.Gauge
	requests     *prometheus.CounterVec
	reqDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deview",
			Name:      "loads_total",
			Help:      "Results table loads by source and outcome.",
		}, []string{"source", "result"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deview",
			Name:      "load_duration_seconds",
			Help:      "Time to read and parse a results table.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		loadedRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deview",
			Name:      "loaded_rows",
			Help:      "Rows per successfully loaded table.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}),
		excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deview",
			Name:      "plot_excluded_rows_total",
			Help:      "Rows left out of volcano plots for a non-positive or missing p-value.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deview",
			Name:      "sessions_active",
			Help:      "Browser sessions currently held in memory.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deview",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deview",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.loads, m.loadDuration, m.loadedRows, m.excluded, m.sessions, m.requests, m.reqDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// LoadResult classifies a load error for the result label.
func LoadResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrMissingFile):
		return "missing"
	case errors.Is(err, core.ErrMalformedTable):
		return "malformed"
	default:
		return "error"
	}
}

// ObserveLoad records one load attempt. Nil receivers are no-ops so callers
// can run without metrics.
func (m *Metrics) ObserveLoad(source string, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.loads.WithLabelValues(source, LoadResult(err)).Inc()
	m.loadDuration.Observe(elapsed.Seconds())
	if err == nil {
		m.loadedRows.Observe(float64(rows))
	}
}

// ObserveExcluded adds rows dropped from a rendered plot.
func (m *Metrics) ObserveExcluded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.excluded.Add(float64(n))
}

// SetSessions reports the number of live sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.reqDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
