// Package metrics provides Prometheus metrics for the ranking and
// qualification engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring path
	seriesRecorded   prometheus.Counter
	recomputeLatency prometheus.Histogram

	// Read path
	rankingsServed prometheus.Counter
	rankingLatency prometheus.Histogram
	exportsServed  prometheus.Counter

	// Qualification
	qualifyTransactions prometheus.Counter
	qualifyRejected     prometheus.Counter

	// Storage
	storeQueryLatency prometheus.Histogram

	// Gauges refreshed from stats
	participantsTotal prometheus.Gauge
	seriesTotal       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "medalist",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto.With(m.registry)

	m.seriesRecorded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "series_recorded_total",
		Help: "Series score submissions accepted.",
	})
	m.recomputeLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "aggregate_recompute_duration_ms",
		Help:    "Participant aggregate recomputation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.rankingsServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rankings_served_total",
		Help: "Ranking computations served.",
	})
	m.rankingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "ranking_duration_ms",
		Help:    "Ranking computation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.exportsServed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "csv_exports_total",
		Help: "CSV exports produced.",
	})
	m.qualifyTransactions = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "qualification_transactions_total",
		Help: "Committed qualification transactions.",
	})
	m.qualifyRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "qualification_rejected_total",
		Help: "Qualification requests rejected by validation.",
	})
	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_query_duration_ms",
		Help:    "Storage query latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.participantsTotal = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "participants_total",
		Help: "Participants currently stored.",
	})
	m.seriesTotal = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "series_total",
		Help: "Series scores currently stored.",
	})
	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// RecordSeriesRecorded increments the accepted series counter.
func RecordSeriesRecorded() {
	globalManager.seriesRecorded.Inc()
}

// RecordRecomputeLatency observes one aggregate recomputation.
func RecordRecomputeLatency(latencyMs float64) {
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordRankingServed increments the ranking counter and observes its latency.
func RecordRankingServed(latencyMs float64) {
	globalManager.rankingsServed.Inc()
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordExportServed increments the CSV export counter.
func RecordExportServed() {
	globalManager.exportsServed.Inc()
}

// RecordQualifyTransaction increments the committed qualification counter.
func RecordQualifyTransaction() {
	globalManager.qualifyTransactions.Inc()
}

// RecordQualifyRejected increments the rejected qualification counter.
func RecordQualifyRejected() {
	globalManager.qualifyRejected.Inc()
}

// RecordStoreQueryLatency observes one storage query.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateParticipantsTotal sets the stored participant gauge.
func UpdateParticipantsTotal(count int) {
	globalManager.participantsTotal.Set(float64(count))
}

// UpdateSeriesTotal sets the stored series gauge.
func UpdateSeriesTotal(count int) {
	globalManager.seriesTotal.Set(float64(count))
}

// RecordHTTPRequest counts one request and observes its latency.
func RecordHTTPRequest(endpoint, method, status string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
