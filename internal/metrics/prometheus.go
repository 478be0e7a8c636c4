// Package metrics provides Prometheus metrics for the World Monitor shell.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the shell.
type Metrics struct {
	// Sidecar metrics
	SidecarStarts          prometheus.Counter
	SidecarRestarts        prometheus.Counter
	SidecarUnexpectedExits prometheus.Counter
	SidecarUp              prometheus.Gauge

	// Health metrics
	HealthProbes       *prometheus.CounterVec
	HealthProbeLatency prometheus.Histogram

	// Control API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthFailures    prometheus.Counter

	// Secrets metrics
	SecretMutations *prometheus.CounterVec

	// Cache metrics
	CacheReads  *prometheus.CounterVec
	CacheWrites prometheus.Counter

	// System metrics
	Uptime     prometheus.Gauge
	GoRoutines prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	// Sidecar metrics
	m.SidecarStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worldmonitor_sidecar_starts_total",
			Help: "Total number of sidecar starts",
		},
	)

	m.SidecarRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worldmonitor_sidecar_restarts_total",
			Help: "Total number of supervised sidecar restarts",
		},
	)

	m.SidecarUnexpectedExits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worldmonitor_sidecar_unexpected_exits_total",
			Help: "Total number of unexpected sidecar exits",
		},
	)

	m.SidecarUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worldmonitor_sidecar_up",
			Help: "Whether the sidecar process is running (1 = running, 0 = stopped)",
		},
	)

	// Health metrics
	m.HealthProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldmonitor_health_probes_total",
			Help: "Total number of sidecar health probes",
		},
		[]string{"result"},
	)

	m.HealthProbeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worldmonitor_health_probe_latency_seconds",
			Help:    "Latency of sidecar health probes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	// Control API metrics
	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldmonitor_api_requests_total",
			Help: "Total number of control API requests",
		},
		[]string{"method", "path", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worldmonitor_api_request_duration_seconds",
			Help:    "Duration of control API requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)

	m.AuthFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worldmonitor_api_auth_failures_total",
			Help: "Total number of control API authentication failures",
		},
	)

	// Secrets metrics
	m.SecretMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldmonitor_secret_mutations_total",
			Help: "Total number of secret vault mutations",
		},
		[]string{"action"},
	)

	// Cache metrics
	m.CacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worldmonitor_cache_reads_total",
			Help: "Total number of persistent cache reads",
		},
		[]string{"result"},
	)

	m.CacheWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worldmonitor_cache_writes_total",
			Help: "Total number of persistent cache writes",
		},
	)

	// System metrics
	m.Uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worldmonitor_uptime_seconds",
			Help: "Shell uptime in seconds",
		},
	)

	m.GoRoutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worldmonitor_goroutines",
			Help: "Number of goroutines",
		},
	)

	// Register all metrics
	m.registry.MustRegister(
		m.SidecarStarts,
		m.SidecarRestarts,
		m.SidecarUnexpectedExits,
		m.SidecarUp,
		m.HealthProbes,
		m.HealthProbeLatency,
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthFailures,
		m.SecretMutations,
		m.CacheReads,
		m.CacheWrites,
		m.Uptime,
		m.GoRoutines,
	)

	// Register default Go metrics
	m.registry.MustRegister(prometheus.NewGoCollector())
	m.registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return m
}

// RecordRequest records a control API request.
func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuthFailure records a control API authentication failure.
func (m *Metrics) RecordAuthFailure() {
	m.AuthFailures.Inc()
}

// RecordSecretMutation records a secret vault mutation.
func (m *Metrics) RecordSecretMutation(action string) {
	m.SecretMutations.WithLabelValues(action).Inc()
}

// RecordCacheRead records a persistent cache read.
func (m *Metrics) RecordCacheRead(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheReads.WithLabelValues(result).Inc()
}

// RecordCacheWrite records a persistent cache write.
func (m *Metrics) RecordCacheWrite() {
	m.CacheWrites.Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
