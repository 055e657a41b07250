package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Session lifecycle events counted by Metrics.
const (
	EventStarted       = "started"
	EventPrimingFailed = "priming_failed"
	EventEnded         = "ended"
	EventSummarized    = "summarized"
	EventSummaryFailed = "summary_failed"
)

// Metrics exposes Prometheus collectors for session and upstream activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsActive   prometheus.Gauge
	sessionEvents    *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Tests should pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "solace",
			Name:      "sessions_active",
			Help:      "Number of chat sessions currently held in memory.",
		}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solace",
			Name:      "session_events_total",
			Help:      "Chat session lifecycle events.",
		}, []string{"event"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "solace",
			Name:      "upstream_requests_total",
			Help:      "Calls made to the model provider, by operation and outcome.",
		}, []string{"op", "outcome"}),
	}

	reg.MustRegister(m.sessionsActive, m.sessionEvents, m.upstreamRequests)
	return m
}

func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(event).Inc()
}

// Upstream records the outcome of one model call.
func (m *Metrics) Upstream(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.upstreamRequests.WithLabelValues(op, outcome).Inc()
}
