// Package metrics provides Prometheus metrics for the firestat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the firestat service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingest Metrics - Source dataset loading and remote fetching
	datasetRowsLoaded *prometheus.CounterVec
	datasetLoadErrors *prometheus.CounterVec
	fetchPages        prometheus.Counter
	fetchBytes        prometheus.Counter
	fetchRetries      prometheus.Counter

	// Partition Metrics - Spatial assignment health
	containmentTests       prometheus.Counter
	boxesAssigned          prometheus.Gauge
	boxesUnassigned        prometheus.Gauge
	boxesSkipped           prometheus.Counter
	companyCount           prometheus.Gauge
	partitionBuildDuration prometheus.Histogram

	// Pipeline Metrics - Period processing and table assembly
	periodsProcessed  prometheus.Counter
	periodsFailed     prometheus.Counter
	rowsEmitted       prometheus.Counter
	outliersDropped   *prometheus.CounterVec
	unknownBoxCodes   prometheus.Counter
	periodLatency     prometheus.Histogram
	pipelineDuration  prometheus.Histogram
	pipelineRunsTotal prometheus.Counter

	// HTTP Performance Metrics
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
		namespace:        "firestat",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Ingest Metrics - Dataset health at the load/save boundary
	m.datasetRowsLoaded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "dataset_rows_loaded_total",
			Help:      "Total number of rows loaded per source dataset",
		},
		[]string{"dataset"},
	)

	m.datasetLoadErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "dataset_load_errors_total",
			Help:      "Total number of load failures per source dataset",
		},
		[]string{"dataset"},
	)

	m.fetchPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_pages_total",
		Help:      "Total number of pages fetched from the open data API",
	})

	m.fetchBytes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_bytes_total",
		Help:      "Total bytes downloaded from the open data API",
	})

	m.fetchRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_retries_total",
		Help:      "Total number of retried fetch requests",
	})

	// Partition Metrics - Spatial assignment health
	m.containmentTests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "containment_tests_total",
		Help:      "Total number of point-in-polygon tests performed",
	})

	m.boxesAssigned = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "boxes_assigned",
		Help:      "Number of alarm boxes assigned to a company territory",
	})

	m.boxesUnassigned = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "boxes_unassigned",
		Help:      "Number of alarm boxes matching no company territory",
	})

	m.boxesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "boxes_skipped_total",
		Help:      "Total number of alarm boxes skipped for invalid coordinates",
	})

	m.companyCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "company_count",
		Help:      "Number of fire companies in the spatial partition",
	})

	m.partitionBuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "partition_build_duration_milliseconds",
		Help:      "Spatial partition build duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Pipeline Metrics - Period processing and table assembly
	m.periodsProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "periods_processed_total",
		Help:      "Total number of reporting periods successfully processed",
	})

	m.periodsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "periods_failed_total",
		Help:      "Total number of reporting periods that failed",
	})

	m.rowsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rows_emitted_total",
		Help:      "Total number of company response rows emitted",
	})

	m.outliersDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "outliers_dropped_total",
			Help:      "Total number of rows dropped by the outlier filter, by reason",
		},
		[]string{"reason"},
	)

	m.unknownBoxCodes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_box_codes_total",
		Help:      "Total number of incidents referencing alarm boxes outside the partition",
	})

	m.periodLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "period_latency_milliseconds",
		Help:      "Per-period window/accumulate/aggregate latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_milliseconds",
		Help:      "End-to-end pipeline run duration in milliseconds",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000, 60000, 300000},
	})

	m.pipelineRunsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Total number of pipeline runs",
	})

	// HTTP Performance Metrics - Serving-mode user experience
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
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Ingest Metrics Functions.

// RecordRowsLoaded adds to the per-dataset loaded row counter.
func RecordRowsLoaded(dataset string, rows int) {
	globalManager.datasetRowsLoaded.WithLabelValues(dataset).Add(float64(rows))
}

// RecordLoadError increments the per-dataset load error counter.
func RecordLoadError(dataset string) {
	globalManager.datasetLoadErrors.WithLabelValues(dataset).Inc()
}

// RecordFetchPage increments the fetched page counter.
func RecordFetchPage() {
	globalManager.fetchPages.Inc()
}

// AddFetchBytes adds to the downloaded byte counter.
func AddFetchBytes(n int64) {
	globalManager.fetchBytes.Add(float64(n))
}

// RecordFetchRetry increments the retried request counter.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// Partition Metrics Functions.

// AddContainmentTests adds to the point-in-polygon test counter.
func AddContainmentTests(n int) {
	globalManager.containmentTests.Add(float64(n))
}

// UpdateBoxesAssigned sets the number of alarm boxes assigned to a territory.
func UpdateBoxesAssigned(count int) {
	globalManager.boxesAssigned.Set(float64(count))
}

// UpdateBoxesUnassigned sets the number of alarm boxes left unassigned.
func UpdateBoxesUnassigned(count int) {
	globalManager.boxesUnassigned.Set(float64(count))
}

// RecordBoxSkipped increments the invalid-coordinate box counter.
func RecordBoxSkipped() {
	globalManager.boxesSkipped.Inc()
}

// UpdateCompanyCount sets the number of companies in the partition.
func UpdateCompanyCount(count int) {
	globalManager.companyCount.Set(float64(count))
}

// RecordPartitionBuildDuration records partition build duration in milliseconds.
func RecordPartitionBuildDuration(durationMs float64) {
	globalManager.partitionBuildDuration.Observe(durationMs)
}

// Pipeline Metrics Functions.

// RecordPeriodProcessed increments the processed period counter.
func RecordPeriodProcessed() {
	globalManager.periodsProcessed.Inc()
}

// RecordPeriodFailed increments the failed period counter.
func RecordPeriodFailed() {
	globalManager.periodsFailed.Inc()
}

// AddRowsEmitted adds to the emitted row counter.
func AddRowsEmitted(n int) {
	globalManager.rowsEmitted.Add(float64(n))
}

// RecordOutlierDropped increments the dropped row counter for a reason.
func RecordOutlierDropped(reason string) {
	globalManager.outliersDropped.WithLabelValues(reason).Inc()
}

// AddUnknownBoxCodes adds to the out-of-partition incident counter.
func AddUnknownBoxCodes(n int) {
	globalManager.unknownBoxCodes.Add(float64(n))
}

// RecordPeriodLatency records per-period processing latency in milliseconds.
func RecordPeriodLatency(latencyMs float64) {
	globalManager.periodLatency.Observe(latencyMs)
}

// RecordRunDuration records end-to-end pipeline run duration in milliseconds.
func RecordRunDuration(durationMs float64) {
	globalManager.pipelineDuration.Observe(durationMs)
}

// RecordRun increments the pipeline run counter.
func RecordRun() {
	globalManager.pipelineRunsTotal.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
