package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Protocol label values.
const (
	ProtocolREST   = "rest"
	ProtocolWS     = "ws"
	ProtocolSocket = "socket"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultMatch   = "match"
	ResultNoMatch = "no_match"
)

// DefaultBuckets are the latency buckets in seconds. Configured delays push
// executions into the upper buckets.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds the simulator collectors.
type Metrics struct {
	registry *prometheus.Registry

	setups     *prometheus.CounterVec
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	registered *prometheus.GaugeVec
	sessions   prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		setups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simulator",
			Name:      "setups_total",
			Help:      "Total number of test setups",
		}, []string{"protocol", "result"}),

		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simulator",
			Name:      "executions_total",
			Help:      "Total number of executed requests",
		}, []string{"protocol", "result"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simulator",
			Name:      "execution_duration_seconds",
			Help:      "Duration of executed requests in seconds",
			Buckets:   DefaultBuckets,
		}, []string{"protocol"}),

		registered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "simulator",
			Name:      "registered_tests",
			Help:      "Number of registered test records",
		}, []string{"protocol"}),

		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simulator",
			Name:      "socket_sessions",
			Help:      "Number of open socket sessions",
		}),
	}

	m.registry.MustRegister(
		m.setups,
		m.executions,
		m.duration,
		m.registered,
		m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format. A nil
// *Metrics serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Setup records a setup outcome.
func (m *Metrics) Setup(protocol string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.setups.WithLabelValues(protocol, result).Inc()
}

// Execution records one executed request.
func (m *Metrics) Execution(protocol, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(protocol, result).Inc()
	m.duration.WithLabelValues(protocol).Observe(d.Seconds())
}

// SetRegistered sets the number of registered records for protocol.
func (m *Metrics) SetRegistered(protocol string, n int) {
	if m == nil {
		return
	}
	m.registered.WithLabelValues(protocol).Set(float64(n))
}

// SessionOpened increments the open socket session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed decrements the open socket session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
