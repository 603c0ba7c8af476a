// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ecomdash"

// Snapshot outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInvalidRange = "invalid_range"
	OutcomeError        = "error"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	DatasetRows      prometheus.Gauge
	Snapshots        *prometheus.CounterVec
	SnapshotDuration prometheus.Histogram
	SnapshotRows     prometheus.Histogram
	CacheRequests    *prometheus.CounterVec
	CacheEvictions   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Reports          *prometheus.CounterVec
	Exports          *prometheus.CounterVec
}

// New registers every instrument plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		DatasetRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Line items in the loaded base table.",
		}),
		Snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Dashboard snapshots computed, by caller and outcome.",
		}, []string{"source", "outcome"}),
		SnapshotDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent filtering and aggregating one range.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		SnapshotRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_rows",
			Help:      "Rows in the filtered view of a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		CacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "View model cache lookups, by result.",
		}, []string{"result"}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "View models evicted for capacity.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Queued report requests handled by the worker, by outcome.",
		}, []string{"outcome"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Dashboard exports, by format.",
		}, []string{"format"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveSnapshot records one pipeline run.
func (m *Metrics) ObserveSnapshot(source, outcome string, rows int, took time.Duration) {
	m.Snapshots.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.SnapshotDuration.Observe(took.Seconds())
	m.SnapshotRows.Observe(float64(rows))
}

// CacheHit and CacheMiss count view model cache lookups.
func (m *Metrics) CacheHit()  { m.CacheRequests.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.CacheRequests.WithLabelValues("miss").Inc() }

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, code int, took time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}
