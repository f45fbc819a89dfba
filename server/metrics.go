package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rac"

// Metrics holds the server's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	connections   *prometheus.GaugeVec
	logSize       prometheus.Gauge
	registrations *prometheus.CounterVec
	authFailures  *prometheus.CounterVec
	badRequests   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Requests handled, by dialect and operation",
		}, []string{"dialect", "op"}),

		connections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections",
			Help:      "Open client connections, by dialect",
		}, []string{"dialect"}),

		logSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "log_size_bytes",
			Help:      "Current size of the message log in bytes",
		}),

		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "registrations_total",
			Help:      "Registration attempts, by result",
		}, []string{"result"}),

		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auth_failures_total",
			Help:      "Rejected authenticated sends, by status",
		}, []string{"status"}),

		badRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bad_requests_total",
			Help:      "Requests that could not be parsed, by dialect",
		}, []string{"dialect"}),
	}
}

func (m *Metrics) request(dialect, op string) {
	if m != nil {
		m.requests.WithLabelValues(dialect, op).Inc()
	}
}

func (m *Metrics) connOpened(dialect string) {
	if m != nil {
		m.connections.WithLabelValues(dialect).Inc()
	}
}

func (m *Metrics) connClosed(dialect string) {
	if m != nil {
		m.connections.WithLabelValues(dialect).Dec()
	}
}

func (m *Metrics) setLogSize(n int) {
	if m != nil {
		m.logSize.Set(float64(n))
	}
}

func (m *Metrics) registration(created bool) {
	if m == nil {
		return
	}
	result := "created"
	if !created {
		result = "exists"
	}
	m.registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) authFailure(status string) {
	if m != nil {
		m.authFailures.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) badRequest(dialect string) {
	if m != nil {
		m.badRequests.WithLabelValues(dialect).Inc()
	}
}
