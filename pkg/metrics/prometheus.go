// Package metrics provides Prometheus metrics for the rally rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rating deltas are small integers; latency buckets are in milliseconds.
var (
	defaultDeltaBuckets   = []float64{1, 2, 4, 8, 12, 16, 24, 32, 48, 64}
	defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	deltaBuckets   []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Ladder metrics
	matchesProcessed  *prometheus.CounterVec
	matchesRejected   *prometheus.CounterVec
	matchLatency      *prometheus.HistogramVec
	ratingDelta       *prometheus.HistogramVec
	playersRegistered *prometheus.GaugeVec
	duplicateReports  prometheus.Counter
	historyBackfills  *prometheus.CounterVec
	adminOverrides    *prometheus.CounterVec

	// Persistence
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "rally",
		subsystem:      "ladder",
		latencyBuckets: defaultLatencyBuckets,
		deltaBuckets:   defaultDeltaBuckets,
		constLabels:    prometheus.Labels{},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.matchesProcessed = auto.NewCounterVec(
		m.counterOpts("matches_processed_total", "Matches applied to a ladder"),
		[]string{"ladder"},
	)
	m.matchesRejected = auto.NewCounterVec(
		m.counterOpts("matches_rejected_total", "Match submissions rejected before any mutation"),
		[]string{"ladder", "reason"},
	)
	m.matchLatency = auto.NewHistogramVec(
		m.histogramOpts("match_latency_milliseconds", "Time to load, apply and save one match", m.latencyBuckets),
		[]string{"ladder"},
	)
	m.ratingDelta = auto.NewHistogramVec(
		m.histogramOpts("rating_delta", "Rating points moved per player per match", m.deltaBuckets),
		[]string{"ladder", "direction"},
	)
	m.playersRegistered = auto.NewGaugeVec(
		m.gaugeOpts("players_registered", "Players known to a ladder after the last write"),
		[]string{"ladder"},
	)
	m.duplicateReports = auto.NewCounter(
		m.counterOpts("duplicate_reports_total", "Match reports dropped because their report id was already applied"),
	)
	m.historyBackfills = auto.NewCounterVec(
		m.counterOpts("history_backfills_total", "History entries written without rating changes"),
		[]string{"ladder"},
	)
	m.adminOverrides = auto.NewCounterVec(
		m.counterOpts("admin_overrides_total", "Administrative stat, head-to-head and medal edits"),
		[]string{"kind"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Repository load and save latency", m.latencyBuckets),
		[]string{"backend", "op"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Failed repository loads and saves"),
		[]string{"backend", "op"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds", m.latencyBuckets),
	)
}

// RecordMatchProcessed counts an applied match and its rating movement.
func RecordMatchProcessed(ladder string, gain, loss int, latencyMs float64) {
	globalManager.matchesProcessed.WithLabelValues(ladder).Inc()
	globalManager.ratingDelta.WithLabelValues(ladder, "gain").Observe(float64(gain))
	globalManager.ratingDelta.WithLabelValues(ladder, "loss").Observe(float64(loss))
	globalManager.matchLatency.WithLabelValues(ladder).Observe(latencyMs)
}

// RecordMatchRejected counts a submission rejected for reason.
func RecordMatchRejected(ladder, reason string) {
	globalManager.matchesRejected.WithLabelValues(ladder, reason).Inc()
}

// RecordDuplicateReport counts a report dropped by id deduplication.
func RecordDuplicateReport() {
	globalManager.duplicateReports.Inc()
}

// RecordHistoryBackfill counts a history-only write.
func RecordHistoryBackfill(ladder string) {
	globalManager.historyBackfills.WithLabelValues(ladder).Inc()
}

// RecordAdminOverride counts an administrative edit of kind.
func RecordAdminOverride(kind string) {
	globalManager.adminOverrides.WithLabelValues(kind).Inc()
}

// UpdatePlayersRegistered sets the player count of a ladder.
func UpdatePlayersRegistered(ladder string, count int) {
	globalManager.playersRegistered.WithLabelValues(ladder).Set(float64(count))
}

// RecordStoreLatency records a repository operation latency.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreError counts a failed repository operation.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
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
