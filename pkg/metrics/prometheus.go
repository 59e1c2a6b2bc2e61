// Package metrics provides Prometheus metrics for the podium standings service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the podium service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scheduler
	cycles              prometheus.Counter
	cycleDuration       prometheus.Histogram
	activeContests      prometheus.Gauge
	contestUpdates      *prometheus.CounterVec
	participantsUpdated prometheus.Counter
	truncationWarnings  prometheus.Counter

	// Judge client
	judgeRequests       *prometheus.CounterVec
	judgeRequestLatency *prometheus.HistogramVec

	// Rating engine
	ratingApplications *prometheus.CounterVec

	// Repository
	repositoryQueries       *prometheus.CounterVec
	repositoryQueryDuration *prometheus.HistogramVec

	// Resync queue and workers
	resyncQueueSize  prometheus.Gauge
	resyncEnqueued   prometheus.Counter
	resyncRejected   *prometheus.CounterVec
	resyncProcessed  *prometheus.CounterVec
	resyncLatency    prometheus.Histogram
	resyncWorkerPool prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	customRegistry.MustRegister(collectors.NewGoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "podium",
		subsystem:        "standings",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.cycles = m.counter("scheduler_cycles_total", "Total number of scheduler cycles run")
	m.cycleDuration = m.histogram("scheduler_cycle_duration_milliseconds", "Duration of a full scheduler cycle in milliseconds")
	m.activeContests = m.gauge("active_contests", "Number of contests active in the latest cycle")
	m.contestUpdates = m.counterVec("contest_updates_total", "Contest update attempts by outcome", "outcome")
	m.participantsUpdated = m.counter("participants_updated_total", "Participant standings persisted by batch writes")
	m.truncationWarnings = m.counter("submission_window_truncations_total", "Fetches that returned exactly the window cap")

	m.judgeRequests = m.counterVec("judge_requests_total", "Requests sent to the judge API by method and outcome", "method", "outcome")
	m.judgeRequestLatency = m.histogramVec("judge_request_duration_milliseconds", "Judge API request latency in milliseconds", "method")

	m.ratingApplications = m.counterVec("rating_applications_total", "Rating application attempts by result reason", "reason")

	m.repositoryQueries = m.counterVec("repository_operations_total", "Store operations by name and outcome", "operation", "outcome")
	m.repositoryQueryDuration = m.histogramVec("repository_operation_duration_milliseconds", "Store operation latency in milliseconds", "operation")

	m.resyncQueueSize = m.gauge("resync_queue_size", "Current number of pending resync requests")
	m.resyncEnqueued = m.counter("resync_enqueued_total", "Resync requests accepted into the queue")
	m.resyncRejected = m.counterVec("resync_rejected_total", "Resync requests rejected before queueing", "reason")
	m.resyncProcessed = m.counterVec("resync_processed_total", "Resync requests processed by outcome", "outcome")
	m.resyncLatency = m.histogram("resync_duration_milliseconds", "Resync processing latency in milliseconds")
	m.resyncWorkerPool = m.gauge("resync_workers", "Number of resync workers running")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
}

// Scheduler

func RecordCycle(durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.cycles.Inc()
	globalManager.cycleDuration.Observe(durationMs)
}

func UpdateActiveContests(count int) {
	if globalManager.enabled {
		globalManager.activeContests.Set(float64(count))
	}
}

// RecordContestUpdate counts one contest update; outcome is one of
// "updated", "unchanged", "skipped", "failed".
func RecordContestUpdate(outcome string) {
	if globalManager.enabled {
		globalManager.contestUpdates.WithLabelValues(outcome).Inc()
	}
}

func RecordParticipantsUpdated(count int) {
	if globalManager.enabled {
		globalManager.participantsUpdated.Add(float64(count))
	}
}

func RecordTruncationWarning() {
	if globalManager.enabled {
		globalManager.truncationWarnings.Inc()
	}
}

// Judge

func RecordJudgeRequest(method, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.judgeRequests.WithLabelValues(method, outcome).Inc()
	globalManager.judgeRequestLatency.WithLabelValues(method).Observe(latencyMs)
}

// Rating

func RecordRatingApplication(reason string) {
	if globalManager.enabled {
		globalManager.ratingApplications.WithLabelValues(reason).Inc()
	}
}

// Repository

func RecordRepositoryQuery(operation, outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryQueries.WithLabelValues(operation, outcome).Inc()
	globalManager.repositoryQueryDuration.WithLabelValues(operation).Observe(latencyMs)
}

// Resync

func UpdateResyncQueueSize(size int) {
	if globalManager.enabled {
		globalManager.resyncQueueSize.Set(float64(size))
	}
}

func RecordResyncEnqueued() {
	if globalManager.enabled {
		globalManager.resyncEnqueued.Inc()
	}
}

func RecordResyncRejected(reason string) {
	if globalManager.enabled {
		globalManager.resyncRejected.WithLabelValues(reason).Inc()
	}
}

func RecordResyncProcessed(outcome string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.resyncProcessed.WithLabelValues(outcome).Inc()
	globalManager.resyncLatency.Observe(latencyMs)
}

func UpdateResyncWorkers(count int) {
	if globalManager.enabled {
		globalManager.resyncWorkerPool.Set(float64(count))
	}
}

// HTTP

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
