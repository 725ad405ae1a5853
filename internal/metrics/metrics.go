package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "doorly"

// Refresh outcomes
const (
	RefreshSucceeded = "succeeded"
	RefreshFailed    = "failed"
)

// Metrics of the session gatekeeper
type Metrics struct {
	decisions       *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
}

// New registers collectors in reg. Pass prometheus.NewRegistry() in tests
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gatekeeper",
			Name:      "decisions_total",
			Help:      "Gatekeeper decisions by session state, route class and action",
		}, []string{"state", "route", "action"}),

		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Token refresh attempts by outcome",
		}, []string{"outcome"}),

		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of token refresh calls to the backend",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveDecision(state string, route string, action string) {
	m.decisions.WithLabelValues(state, route, action).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(d.Seconds())
}
