// Package metrics provides Prometheus metrics for the valetudo sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics, per sync run.
	contestsIngested  prometheus.Counter
	contestsDuplicate prometheus.Counter
	recordsMalformed  prometheus.Counter

	// Run metrics.
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	// Store scale gauges.
	checkpointContests prometheus.Gauge
	competitorsTotal   prometheus.Gauge
	contestsTotal      prometheus.Gauge

	// Retrain gate decisions.
	retrainDecisions *prometheus.CounterVec

	// Writer lease state.
	leaseHeld prometheus.Gauge

	// HTTP performance metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "valetudo",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.contestsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contests_ingested_total",
		Help:      "Total number of new contests ingested",
	})

	m.contestsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contests_duplicate_total",
		Help:      "Total number of already-known contests skipped during ingestion",
	})

	m.recordsMalformed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_malformed_total",
		Help:      "Total number of source records dropped as undecodable",
	})

	m.runs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "runs_total",
			Help:      "Total number of sync runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	m.runDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "run_duration_seconds",
			Help:      "Sync run duration in seconds by mode",
			Buckets:   m.histogramBuckets,
		},
		[]string{"mode"},
	)

	m.checkpointContests = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "checkpoint_contests",
		Help:      "Number of contests covered by the current checkpoint",
	})

	m.competitorsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "competitors_total",
		Help:      "Total number of known competitors",
	})

	m.contestsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "contests_total",
		Help:      "Total number of stored contests",
	})

	m.retrainDecisions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "retrain_decisions_total",
			Help:      "Total number of retrain gate decisions by verdict",
		},
		[]string{"retrain"},
	)

	m.leaseHeld = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lease_held",
		Help:      "Whether this process currently holds the writer lease (0 or 1)",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// RecordContestIngested increments the ingested contest counter.
func RecordContestIngested() {
	globalManager.contestsIngested.Inc()
}

// RecordContestDuplicate increments the duplicate contest counter.
func RecordContestDuplicate() {
	globalManager.contestsDuplicate.Inc()
}

// RecordRecordMalformed increments the malformed record counter.
func RecordRecordMalformed() {
	globalManager.recordsMalformed.Inc()
}

// RecordRun records a finished sync run with its outcome and duration.
func RecordRun(mode, outcome string, duration time.Duration) {
	globalManager.runs.WithLabelValues(mode, outcome).Inc()
	globalManager.runDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// UpdateCheckpointContests sets the contest count of the current checkpoint.
func UpdateCheckpointContests(count int64) {
	globalManager.checkpointContests.Set(float64(count))
}

// UpdateCompetitorsTotal sets the total competitor count.
func UpdateCompetitorsTotal(count int64) {
	globalManager.competitorsTotal.Set(float64(count))
}

// UpdateContestsTotal sets the total contest count.
func UpdateContestsTotal(count int64) {
	globalManager.contestsTotal.Set(float64(count))
}

// RecordRetrainDecision records a retrain gate verdict.
func RecordRetrainDecision(retrain bool) {
	v := "false"
	if retrain {
		v = "true"
	}
	globalManager.retrainDecisions.WithLabelValues(v).Inc()
}

// SetLeaseHeld flags whether this process holds the writer lease.
func SetLeaseHeld(held bool) {
	if held {
		globalManager.leaseHeld.Set(1)
	} else {
		globalManager.leaseHeld.Set(0)
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
