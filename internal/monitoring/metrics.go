package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/modforge/scriptbox/internal/security"
)

// Metrics holds all Prometheus metrics. The registerer is injectable so
// tests can use an isolated registry.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationsTotal *prometheus.CounterVec
	ViolationsTotal  *prometheus.CounterVec

	// Execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	ExecutionMemory   prometheus.Histogram
	ExecutionsActive  prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers the metric set.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scriptbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scriptbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scriptbox_validations_total",
				Help: "Static validations by verdict",
			},
			[]string{"verdict"},
		),
		ViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scriptbox_violations_total",
				Help: "Security violations by code and severity",
			},
			[]string{"code", "severity"},
		),

		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scriptbox_executions_total",
				Help: "Executions by terminal state",
			},
			[]string{"outcome"},
		),
		ExecutionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scriptbox_execution_duration_seconds",
				Help:    "Script execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		ExecutionMemory: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scriptbox_execution_memory_bytes",
				Help:    "Sampled peak memory per execution",
				Buckets: prometheus.ExponentialBuckets(64<<10, 4, 10),
			},
		),
		ExecutionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scriptbox_executions_active",
				Help: "Executions currently running",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scriptbox_ws_connections",
				Help: "Open WebSocket streaming connections",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scriptbox_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records one finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordValidation records one validation verdict ("valid" or "invalid")
// and every violation it produced, so repeated findings of the same code
// are counted individually.
func (m *Metrics) RecordValidation(verdict string, violations []security.SecurityViolation) {
	m.ValidationsTotal.WithLabelValues(verdict).Inc()
	for _, v := range violations {
		m.ViolationsTotal.WithLabelValues(v.Code, v.Severity.String()).Inc()
	}
}

// RecordExecution records one finished execution.
func (m *Metrics) RecordExecution(outcome string, duration time.Duration, memory int64) {
	m.ExecutionsTotal.WithLabelValues(outcome).Inc()
	m.ExecutionDuration.Observe(duration.Seconds())
	m.ExecutionMemory.Observe(float64(memory))
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
