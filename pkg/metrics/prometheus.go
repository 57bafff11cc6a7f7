// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector registered by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Scoring engine
	submissionsTotal    prometheus.Counter
	submissionsRejected prometheus.Counter
	settlementsTotal    prometheus.Counter
	entriesAwarded      prometheus.Counter
	settlementDuration  prometheus.Histogram
	adminOps            *prometheus.CounterVec

	// Store health
	storeCommits      prometheus.Counter
	storeErrors       prometheus.Counter
	storeCommitsDur   prometheus.Histogram
	dailyEntries      prometheus.Gauge
	standingRecords   prometheus.Gauge
	watchSubscribers  prometheus.Gauge
	watchSnapshots    prometheus.Counter
	watchDroppedSends prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry keeps the default Go collectors out of scrapes.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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

	m.submissionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Daily entry submissions accepted.",
	})
	m.submissionsRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_rejected_total",
		Help:      "Daily entry submissions rejected during validation.",
	})
	m.settlementsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settlements_total",
		Help:      "Completed day settlements.",
	})
	m.entriesAwarded = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "entries_awarded_total",
		Help:      "Daily entries credited with points across all settlements.",
	})
	m.settlementDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settlement_duration_seconds",
		Help:      "Wall time of a FinishDay settlement.",
		Buckets:   m.histogramBuckets,
	})
	m.adminOps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "admin_operations_total",
		Help:      "Admin maintenance operations by name.",
	}, []string{"operation"})

	m.storeCommits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_commits_total",
		Help:      "Committed write batches.",
	})
	m.storeErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Store operations that returned an error.",
	})
	m.storeCommitsDur = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_commit_duration_seconds",
		Help:      "Latency of write batch commits.",
		Buckets:   m.histogramBuckets,
	})
	m.dailyEntries = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "daily_entries",
		Help:      "Live daily entries awaiting settlement.",
	})
	m.standingRecords = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "standing_records",
		Help:      "Cumulative standing records tracked.",
	})
	m.watchSubscribers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watch_subscribers",
		Help:      "Active change-feed subscribers.",
	})
	m.watchSnapshots = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watch_snapshots_total",
		Help:      "Snapshots delivered to change-feed subscribers.",
	})
	m.watchDroppedSends = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "watch_dropped_sends_total",
		Help:      "Snapshot sends dropped because a subscriber lagged.",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by endpoint, method and status.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
	m.httpErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint and class.",
	}, []string{"endpoint", "class"})
}

// Package-level helpers operating on the global manager.

func RecordSubmission() {
	if globalManager.enabled {
		globalManager.submissionsTotal.Inc()
	}
}

func RecordSubmissionRejected() {
	if globalManager.enabled {
		globalManager.submissionsRejected.Inc()
	}
}

func RecordSettlement(awarded int, seconds float64) {
	if globalManager.enabled {
		globalManager.settlementsTotal.Inc()
		globalManager.entriesAwarded.Add(float64(awarded))
		globalManager.settlementDuration.Observe(seconds)
	}
}

func RecordAdminOp(operation string) {
	if globalManager.enabled {
		globalManager.adminOps.WithLabelValues(operation).Inc()
	}
}

func RecordStoreCommit(seconds float64) {
	if globalManager.enabled {
		globalManager.storeCommits.Inc()
		globalManager.storeCommitsDur.Observe(seconds)
	}
}

func RecordStoreError() {
	if globalManager.enabled {
		globalManager.storeErrors.Inc()
	}
}

func UpdateDailyEntries(count int) {
	if globalManager.enabled {
		globalManager.dailyEntries.Set(float64(count))
	}
}

func UpdateStandingRecords(count int) {
	if globalManager.enabled {
		globalManager.standingRecords.Set(float64(count))
	}
}

func UpdateWatchSubscribers(count int) {
	if globalManager.enabled {
		globalManager.watchSubscribers.Set(float64(count))
	}
}

func RecordWatchSnapshot() {
	if globalManager.enabled {
		globalManager.watchSnapshots.Inc()
	}
}

func RecordWatchDroppedSend() {
	if globalManager.enabled {
		globalManager.watchDroppedSends.Inc()
	}
}

func RecordHTTPRequest(endpoint, method, status string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	}
}

func RecordHTTPRequestDuration(endpoint, method, status string, seconds float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(seconds)
	}
}

func RecordHTTPError(endpoint, class string) {
	if globalManager.enabled {
		globalManager.httpErrors.WithLabelValues(endpoint, class).Inc()
	}
}

// GetRegistry returns the custom registry for serving /healthz scrapes.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
