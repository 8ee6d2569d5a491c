package authkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth events recorded by the gate and the auth routes.
const (
	metricGateAccessValid     = "auth.gate.access_valid"
	metricGateAccessReissued  = "auth.gate.access_reissued"
	metricGateRefreshReissued = "auth.gate.refresh_reissued"
	metricGateRefreshInvalid  = "auth.gate.refresh_invalid"
	metricGateMissingRefresh  = "auth.gate.missing_refresh"
	metricGateUserMissing     = "auth.gate.user_missing"
	metricLoginSuccess        = "auth.login.success"
	metricLoginFailure        = "auth.login.failure"
	metricLoginRateLimited    = "auth.login.rate_limited"
	metricRegisterSuccess     = "auth.register.success"
	metricRegisterDuplicate   = "auth.register.duplicate"
	metricLogout              = "auth.logout"
)

// MetricsRecorder increments counters for auth events.
type MetricsRecorder interface {
	Increment(event string)
}

type noopMetrics struct{}

func (noopMetrics) Increment(string) {}

// PrometheusMetrics exports auth events as a labelled prometheus counter.
type PrometheusMetrics struct {
	events *prometheus.CounterVec
}

// NewPrometheusMetrics registers storekeep_auth_events_total with the registerer.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &PrometheusMetrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storekeep",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Authentication events by kind",
		}, []string{"event"}),
	}
}

// Increment increases the counter for the given event.
func (recorder *PrometheusMetrics) Increment(event string) {
	recorder.events.WithLabelValues(event).Inc()
}
