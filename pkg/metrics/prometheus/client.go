package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/zkgo/internal/session"
	"github.com/marmos91/zkgo/internal/wire"
	"github.com/marmos91/zkgo/pkg/metrics"
)

func init() {
	metrics.RegisterClientMetricsConstructor(func() metrics.ClientMetrics {
		return newClientMetrics()
	})
}

// clientMetrics is the Prometheus implementation of session.Metrics.
type clientMetrics struct {
	reconnects  prometheus.Counter
	connected   prometheus.Counter
	expired     prometheus.Counter
	pings       prometheus.Counter
	requests    *prometheus.CounterVec
	watchEvents *prometheus.CounterVec
}

func newClientMetrics() *clientMetrics {
	reg := metrics.GetRegistry()

	return &clientMetrics{
		reconnects: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zkgo_reconnects_total",
			Help: "Total number of reconnect attempts across all endpoints.",
		}),
		connected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zkgo_session_connected_total",
			Help: "Total number of times the session reached CONNECTED.",
		}),
		expired: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zkgo_session_expired_total",
			Help: "Total number of times the session transitioned to EXPIRED.",
		}),
		pings: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zkgo_pings_sent_total",
			Help: "Total number of idle-timeout PING frames sent.",
		}),
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "zkgo_requests_completed_total",
			Help: "Total number of completed requests by opcode and outcome.",
		}, []string{"opcode", "status"}),
		watchEvents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "zkgo_watch_events_delivered_total",
			Help: "Total number of server-pushed watch events delivered to the Watcher.",
		}, []string{"event_type"}),
	}
}

func (m *clientMetrics) ReconnectAttempted() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *clientMetrics) SessionConnected() {
	if m == nil {
		return
	}
	m.connected.Inc()
}

func (m *clientMetrics) SessionExpired() {
	if m == nil {
		return
	}
	m.expired.Inc()
}

func (m *clientMetrics) PingSent() {
	if m == nil {
		return
	}
	m.pings.Inc()
}

func (m *clientMetrics) RequestCompleted(opcode wire.OpCode, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(opcode.String(), status).Inc()
}

func (m *clientMetrics) WatchEventDelivered(eventType session.EventType) {
	if m == nil {
		return
	}
	m.watchEvents.WithLabelValues(eventTypeName(eventType)).Inc()
}

func eventTypeName(t session.EventType) string {
	switch t {
	case session.EventCreated:
		return "created"
	case session.EventDeleted:
		return "deleted"
	case session.EventChanged:
		return "changed"
	case session.EventChild:
		return "child"
	case session.EventSession:
		return "session"
	case session.EventNotWatching:
		return "not_watching"
	default:
		return "unknown"
	}
}
