// Package metrics defines the Prometheus collectors for admission, message
// handling and outbound sends.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sockgate"

// Admission paths
const (
	PathNew       = "new"
	PathReconnect = "reconnect"
)

// Message results
const (
	ResultAck          = "ack"
	ResultParseError   = "parse_error"
	ResultUnauthorized = "unauthorized"
	ResultDispatchFail = "dispatch_error"
	ResultDropped      = "dropped"
)

// Metrics holds every collector sockgate exports
type Metrics struct {
	Admissions   *prometheus.CounterVec
	Messages     *prometheus.CounterVec
	SendFailures prometheus.Counter
	OpenSockets  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a fresh registry.
// connections is sampled on every scrape for the registry size gauge; it may
// be nil.
func New(connections func() int) *Metrics {
	m := &Metrics{
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Upgrade requests admitted, by path (new or reconnect).",
		}, []string{"path"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound frames handled, by result.",
		}, []string{"result"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound frames that could not be queued.",
		}),
		OpenSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_sockets",
			Help:      "Websocket connections currently open.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.Admissions, m.Messages, m.SendFailures, m.OpenSockets)
	if connections != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registered_tickets",
			Help:      "Tickets currently held in the connection registry.",
		}, func() float64 { return float64(connections()) }))
	}

	return m
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Admitted records one admission. Safe on a nil receiver.
func (m *Metrics) Admitted(reconnect bool) {
	if m == nil {
		return
	}
	path := PathNew
	if reconnect {
		path = PathReconnect
	}
	m.Admissions.WithLabelValues(path).Inc()
}

// Message records one handled frame. Safe on a nil receiver.
func (m *Metrics) Message(result string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(result).Inc()
}

// SendFailed records one failed outbound send. Safe on a nil receiver.
func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.SendFailures.Inc()
}

// SocketOpened increments the open socket gauge. Safe on a nil receiver.
func (m *Metrics) SocketOpened() {
	if m == nil {
		return
	}
	m.OpenSockets.Inc()
}

// SocketClosed decrements the open socket gauge. Safe on a nil receiver.
func (m *Metrics) SocketClosed() {
	if m == nil {
		return
	}
	m.OpenSockets.Dec()
}
