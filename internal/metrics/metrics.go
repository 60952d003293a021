// Package metrics exposes service counters in the Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mystuff"

// Metrics owns a private registry so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	entriesAdded     prometheus.Counter
	entriesDeleted   prometheus.Counter
	exports          *prometheus.CounterVec
	exportDuration   *prometheus.HistogramVec
	exportPages      prometheus.Histogram
	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		entriesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_added_total",
			Help:      "Photo entries added.",
		}),
		entriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Photo entries deleted.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "PDF exports by document kind and outcome.",
		}, []string{"kind", "outcome"}),
		exportDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Time spent rendering and writing PDF exports.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		exportPages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_pages",
			Help:      "Pages per exported document.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Image analyses by backend and outcome.",
		}, []string{"backend", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Latency of image analysis calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"backend"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.entriesAdded,
		m.entriesDeleted,
		m.exports,
		m.exportDuration,
		m.exportPages,
		m.analyses,
		m.analysisDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) EntryAdded() { m.entriesAdded.Inc() }

func (m *Metrics) EntriesDeleted(n int) { m.entriesDeleted.Add(float64(n)) }

// ObserveExport records one export attempt. pages is ignored on failure.
func (m *Metrics) ObserveExport(kind string, pages int, d time.Duration, err error) {
	m.exports.WithLabelValues(kind, outcome(err)).Inc()
	m.exportDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err == nil {
		m.exportPages.Observe(float64(pages))
	}
}

// ObserveAnalysis records one analysis call. result is "ok" or an error kind.
func (m *Metrics) ObserveAnalysis(backend, result string, d time.Duration) {
	m.analyses.WithLabelValues(backend, result).Inc()
	m.analysisDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
