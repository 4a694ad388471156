// Package metrics provides Prometheus metrics for the wodboard scoring service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// latencyBuckets are used for engine and repository latencies in milliseconds.
var latencyBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the wodboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scoring engine
	mutations           *prometheus.CounterVec
	invocationLatency   *prometheus.HistogramVec
	resultsRanked       prometheus.Counter
	batchFailures       prometheus.Counter
	degradedRetries     prometheus.Counter
	standingsRecomputed prometheus.Counter
	unparseableScores   *prometheus.CounterVec
	duplicateDeliveries prometheus.Counter
	teamsTotal          prometheus.Gauge

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var (
	globalMu      sync.RWMutex //nolint:gochecknoglobals // guards globalManager
	globalManager *Manager     //nolint:gochecknoglobals // singleton metrics manager
)

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "wodboard",
		subsystem:        "scoring",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is the period for gauge updaters.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval is the sampling period of the global manager.
func RefreshInterval() time.Duration { return current().RefreshInterval() }

// Enabled reports whether recorders write to the collectors.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.mutations = auto.NewCounterVec(
		m.counterOpts("mutations_total", "Result mutations handled by the engine, by trigger kind"),
		[]string{"kind"},
	)
	m.invocationLatency = auto.NewHistogramVec(
		m.histogramOpts("invocation_latency_milliseconds", "Engine entry point latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.resultsRanked = auto.NewCounter(m.counterOpts("results_ranked_total", "Results assigned a rank"))
	m.batchFailures = auto.NewCounter(m.counterOpts("batch_failures_total", "Failed batch writes"))
	m.degradedRetries = auto.NewCounter(m.counterOpts("degraded_retries_total", "Rank-only batch retries after a combined batch failed"))
	m.standingsRecomputed = auto.NewCounter(m.counterOpts("standings_recomputed_total", "Category standings recomputations"))
	m.unparseableScores = auto.NewCounterVec(
		m.counterOpts("unparseable_scores_total", "Raw scores that failed to parse, by scoring mode"),
		[]string{"mode"},
	)
	m.duplicateDeliveries = auto.NewCounter(m.counterOpts("duplicate_deliveries_total", "Mutation deliveries dropped as duplicates"))
	m.teamsTotal = auto.NewGauge(m.gaugeOpts("teams", "Registered teams"))

	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Repository operation latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Mutations waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Mutations enqueued"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Mutations dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Mutations rejected by the queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Running mutation workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Per-mutation worker latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Mutations whose processing failed"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by route, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = auto.NewCounterVec(
		m.counterOpts("http_errors_total", "HTTP error responses by route, method and error code"),
		[]string{"endpoint", "method", "error_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Live goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}),
	)
}

func current() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// SetGlobal replaces the manager used by the package-level recorders and
// returns the previous one.
func SetGlobal(m *Manager) *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	prev := globalManager
	if m != nil {
		globalManager = m
	}
	return prev
}

// Engine

// RecordMutation counts a mutation by trigger kind (create, update, delete, noop).
func RecordMutation(kind string) {
	if m := current(); m.enabled {
		m.mutations.WithLabelValues(kind).Inc()
	}
}

// RecordInvocationLatency records an engine entry point latency.
func RecordInvocationLatency(operation string, latencyMs float64) {
	if m := current(); m.enabled {
		m.invocationLatency.WithLabelValues(operation).Observe(latencyMs)
	}
}

// RecordResultsRanked adds n ranked results.
func RecordResultsRanked(n int) {
	if m := current(); m.enabled && n > 0 {
		m.resultsRanked.Add(float64(n))
	}
}

// RecordBatchFailure increments the failed batch counter.
func RecordBatchFailure() {
	if m := current(); m.enabled {
		m.batchFailures.Inc()
	}
}

// RecordDegradedRetry increments the rank-only retry counter.
func RecordDegradedRetry() {
	if m := current(); m.enabled {
		m.degradedRetries.Inc()
	}
}

// RecordStandingsRecomputed increments the standings recomputation counter.
func RecordStandingsRecomputed() {
	if m := current(); m.enabled {
		m.standingsRecomputed.Inc()
	}
}

// RecordUnparseableScore counts a raw score that failed to parse.
func RecordUnparseableScore(mode string) {
	if m := current(); m.enabled {
		m.unparseableScores.WithLabelValues(mode).Inc()
	}
}

// RecordDuplicateDelivery counts a dropped duplicate delivery.
func RecordDuplicateDelivery() {
	if m := current(); m.enabled {
		m.duplicateDeliveries.Inc()
	}
}

// UpdateTeamCount sets the registered team gauge.
func UpdateTeamCount(count int) {
	if m := current(); m.enabled {
		m.teamsTotal.Set(float64(count))
	}
}

// Repository

// RecordRepositoryLatency records a repository operation latency.
func RecordRepositoryLatency(op string, latencyMs float64) {
	if m := current(); m.enabled {
		m.repositoryLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// Queue

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if m := current(); m.enabled {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := current(); m.enabled {
		m.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets size/capacity.
func UpdateQueueUtilization(utilization float64) {
	if m := current(); m.enabled {
		m.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if m := current(); m.enabled {
		m.queueEnqueue.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if m := current(); m.enabled {
		m.queueDequeue.Inc()
	}
}

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() {
	if m := current(); m.enabled {
		m.queueEnqueueErrors.Inc()
	}
}

// Workers

// UpdateWorkerCount sets the running worker gauge.
func UpdateWorkerCount(count int) {
	if m := current(); m.enabled {
		m.workerCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records per-mutation worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := current(); m.enabled {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if m := current(); m.enabled {
		m.workerErrors.Inc()
	}
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := current(); m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorCode string) {
	if m := current(); m.enabled {
		m.httpErrors.WithLabelValues(endpoint, method, errorCode).Inc()
	}
}

// System

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := current(); m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
