package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service and the voice client.
type Metrics struct {
	TokenMints        *prometheus.CounterVec
	UpstreamErrors    *prometheus.CounterVec
	UpstreamLatency   *prometheus.HistogramVec
	AssistantReplies  *prometheus.CounterVec
	ActionsDispatched *prometheus.CounterVec
	RTCSessionEvents  *prometheus.CounterVec
	ActiveRTCSessions prometheus.Gauge
	WSMessages        *prometheus.CounterVec

	// Latency mirrors UpstreamLatency over a short rolling window.
	Latency *LatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers instruments on reg. Tests pass a fresh registry so
// repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TokenMints: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_mints_total",
			Help:      "Session credential mint attempts by outcome.",
		}, []string{"outcome"}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream provider errors by provider and code.",
		}, []string{"provider", "code"}),
		UpstreamLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_ms",
			Help:      "Upstream call latency in milliseconds by operation.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000},
		}, []string{"operation"}),
		AssistantReplies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_replies_total",
			Help:      "Fallback assistant replies by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ActionsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Data channel messages by action name and dispatch outcome.",
		}, []string{"name", "outcome"}),
		RTCSessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rtc_session_events_total",
			Help:      "Realtime session lifecycle events by type.",
		}, []string{"event"}),
		ActiveRTCSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rtc_active_sessions",
			Help:      "Number of active realtime peer sessions.",
		}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		Latency: NewLatencyWindow(256),
	}
}

func (m *Metrics) ObserveUpstream(operation string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Milliseconds())
	m.UpstreamLatency.WithLabelValues(operation).Observe(ms)
	m.Latency.Observe(operation, ms)
}

func (m *Metrics) UpstreamError(provider, code string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) Reply(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.AssistantReplies.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) Mint(outcome string) {
	if m == nil {
		return
	}
	m.TokenMints.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Action(name, outcome string) {
	if m == nil {
		return
	}
	m.ActionsDispatched.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) RTCEvent(event string) {
	if m == nil {
		return
	}
	m.RTCSessionEvents.WithLabelValues(event).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
