// Package metrics provides Prometheus metrics for the trade valuation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Valuation
	assetsScored     prometheus.Counter
	scoringErrors    *prometheus.CounterVec
	valuationLatency prometheus.Histogram

	// Advice and search
	recommendationsReturned prometheus.Counter
	proposalsReturned       prometheus.Counter
	subsetsEvaluated        prometheus.Counter
	searchTruncations       *prometheus.CounterVec
	searchLatency           *prometheus.HistogramVec

	// Calibration
	calibrationRuns     *prometheus.CounterVec
	calibrationLastRho  prometheus.Gauge
	calibrationDuration prometheus.Histogram

	// Value chart
	chartEntries *prometheus.GaugeVec
	chartUpdates prometheus.Counter

	// Revaluation queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	jobsDuplicate      prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	jobsProcessed           prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tradeval",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.assetsScored = m.counter("assets_scored_total", "Total number of assets scored")
	m.scoringErrors = m.counterVec("scoring_errors_total", "Scoring failures by error kind", "kind")
	m.valuationLatency = m.histogram("valuation_latency_milliseconds", "Latency of scoring one asset batch in milliseconds", m.histogramBuckets)

	m.recommendationsReturned = m.counter("recommendations_returned_total", "Total number of recommendations returned")
	m.proposalsReturned = m.counter("proposals_returned_total", "Total number of trade proposals returned")
	m.subsetsEvaluated = m.counter("proposal_pairs_evaluated_total", "Total number of in-band subset pairs evaluated")
	m.searchTruncations = m.counterVec("proposal_search_truncations_total", "Proposal searches stopped early by reason", "reason")
	m.searchLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "search_latency_milliseconds",
		Help:      "Latency of proposal and matchmaking searches in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"operation"})

	m.calibrationRuns = m.counterVec("calibration_runs_total", "Calibration runs by terminal status", "status")
	m.calibrationLastRho = m.gauge("calibration_last_overall_rho", "Overall Spearman rho of the last completed calibration run")
	m.calibrationDuration = m.histogram("calibration_duration_seconds", "Calibration run duration in seconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60})

	m.chartEntries = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chart_entries",
		Help:      "Number of assets on a league value chart",
	}, []string{"league"})
	m.chartUpdates = m.counter("chart_updates_total", "Total number of value chart upserts")

	m.queueSize = m.gauge("queue_size", "Current size of the revaluation queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum revaluation queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of revaluation jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of revaluation jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Revaluation jobs skipped because an identical job was in flight")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of active revaluation workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed revaluation jobs")
	m.jobsProcessed = m.counter("jobs_processed_total", "Total number of revaluation jobs completed")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordAssetsScored adds n to the scored assets counter.
func RecordAssetsScored(n int) {
	globalManager.assetsScored.Add(float64(n))
}

// RecordScoringError counts a scoring failure of the given kind.
func RecordScoringError(kind string) {
	globalManager.scoringErrors.WithLabelValues(kind).Inc()
}

// RecordValuationLatency records scoring latency in milliseconds.
func RecordValuationLatency(latencyMs float64) {
	globalManager.valuationLatency.Observe(latencyMs)
}

// RecordRecommendations adds n returned recommendations.
func RecordRecommendations(n int) {
	globalManager.recommendationsReturned.Add(float64(n))
}

// RecordProposalSearch records the outcome of one proposal search.
func RecordProposalSearch(returned, evaluated int, truncatedReason string) {
	globalManager.proposalsReturned.Add(float64(returned))
	globalManager.subsetsEvaluated.Add(float64(evaluated))
	if truncatedReason != "" {
		globalManager.searchTruncations.WithLabelValues(truncatedReason).Inc()
	}
}

// RecordSearchLatency records a search latency for operation in milliseconds.
func RecordSearchLatency(operation string, latencyMs float64) {
	globalManager.searchLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordCalibrationRun counts a finished run and its duration.
func RecordCalibrationRun(status string, seconds float64) {
	globalManager.calibrationRuns.WithLabelValues(status).Inc()
	globalManager.calibrationDuration.Observe(seconds)
}

// UpdateCalibrationRho sets the last completed run's overall rho.
func UpdateCalibrationRho(rho float64) {
	globalManager.calibrationLastRho.Set(rho)
}

// UpdateChartEntries sets the chart size for a league.
func UpdateChartEntries(league string, count int) {
	globalManager.chartEntries.WithLabelValues(league).Set(float64(count))
}

// RecordChartUpdate counts one chart upsert.
func RecordChartUpdate() {
	globalManager.chartUpdates.Inc()
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordJobDuplicate counts a job skipped by dedupe.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordJobProcessed increments the completed jobs counter.
func RecordJobProcessed() {
	globalManager.jobsProcessed.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
