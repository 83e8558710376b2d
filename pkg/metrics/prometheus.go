// Package metrics provides Prometheus metrics for the IPA27 dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store states reported by the snapshot state gauge.
const (
	StateLoading = 0
	StateLoaded  = 1
	StateFailed  = 2
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Snapshot lifecycle
	snapshotFetches       *prometheus.CounterVec
	snapshotFetchLatency  prometheus.Histogram
	snapshotBytes         prometheus.Gauge
	snapshotLastSuccess   prometheus.Gauge
	snapshotState         prometheus.Gauge
	snapshotWarnings      prometheus.Gauge
	snapshotDecodeErrors  prometheus.Counter
	deriveLatency         *prometheus.HistogramVec
	fallbackIndicatorRows prometheus.Gauge

	// Cache
	cacheLookups *prometheus.CounterVec

	// Refresh queue
	refreshRequests *prometheus.CounterVec
	refreshPending  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ipa27",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if len(buckets) == 0 {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	latencyBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.snapshotFetches = auto.NewCounterVec(m.counterOpts("snapshot_fetches_total", "Snapshot fetch attempts by source and result"), []string{"source", "result"})
	m.snapshotFetchLatency = auto.NewHistogram(m.histogramOpts("snapshot_fetch_latency_milliseconds", "Snapshot fetch latency in milliseconds", latencyBuckets))
	m.snapshotBytes = auto.NewGauge(m.gaugeOpts("snapshot_bytes", "Size of the current snapshot document in bytes"))
	m.snapshotLastSuccess = auto.NewGauge(m.gaugeOpts("snapshot_last_success_unix", "Unix time of the last successful snapshot load"))
	m.snapshotState = auto.NewGauge(m.gaugeOpts("snapshot_state", "Store state: 0 loading, 1 loaded, 2 failed"))
	m.snapshotWarnings = auto.NewGauge(m.gaugeOpts("snapshot_invariant_warnings", "Invariant warnings reported for the current snapshot"))
	m.snapshotDecodeErrors = auto.NewCounter(m.counterOpts("snapshot_decode_errors_total", "Snapshot documents rejected as malformed"))
	m.deriveLatency = auto.NewHistogramVec(m.histogramOpts("derive_latency_milliseconds", "Time spent deriving view series", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25}), []string{"view"})
	m.fallbackIndicatorRows = auto.NewGauge(m.gaugeOpts("indicator_fallback_rows", "Indicator gap rows computed against the fallback reference"))

	m.cacheLookups = auto.NewCounterVec(m.counterOpts("cache_lookups_total", "Snapshot cache lookups by result"), []string{"result"})

	m.refreshRequests = auto.NewCounterVec(m.counterOpts("refresh_requests_total", "Refresh requests by origin and outcome"), []string{"origin", "outcome"})
	m.refreshPending = auto.NewGauge(m.gaugeOpts("refresh_pending", "Refresh requests waiting for the worker"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", latencyBuckets), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint, method and type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}))
}

// RecordSnapshotFetch counts a fetch attempt and observes its latency.
func RecordSnapshotFetch(source, result string, latencyMs float64) {
	globalManager.snapshotFetches.WithLabelValues(source, result).Inc()
	globalManager.snapshotFetchLatency.Observe(latencyMs)
}

// RecordSnapshotLoaded records size and load time of a freshly stored snapshot.
func RecordSnapshotLoaded(size int, unix int64, warnings int) {
	globalManager.snapshotBytes.Set(float64(size))
	globalManager.snapshotLastSuccess.Set(float64(unix))
	globalManager.snapshotWarnings.Set(float64(warnings))
}

// UpdateSnapshotState sets the store state gauge.
func UpdateSnapshotState(state int) {
	globalManager.snapshotState.Set(float64(state))
}

// RecordSnapshotDecodeError counts a malformed snapshot document.
func RecordSnapshotDecodeError() {
	globalManager.snapshotDecodeErrors.Inc()
}

// RecordDeriveLatency observes the time spent building one derived view.
func RecordDeriveLatency(view string, latencyMs float64) {
	globalManager.deriveLatency.WithLabelValues(view).Observe(latencyMs)
}

// UpdateFallbackIndicatorRows sets the number of indicator rows using the fallback reference.
func UpdateFallbackIndicatorRows(count int) {
	globalManager.fallbackIndicatorRows.Set(float64(count))
}

// RecordCacheLookup counts a cache hit, miss or error.
func RecordCacheLookup(result string) {
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRefreshRequest counts a refresh request by origin (startup, manual, periodic) and outcome.
func RecordRefreshRequest(origin, outcome string) {
	globalManager.refreshRequests.WithLabelValues(origin, outcome).Inc()
}

// UpdateRefreshPending sets the number of pending refresh requests.
func UpdateRefreshPending(n int) {
	globalManager.refreshPending.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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
