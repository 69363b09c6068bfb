package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by ProcessLifecycle.
type Metrics struct {
	actions     *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the lifecycle collectors on reg. A nil reg creates a
// private registry, which keeps tests independent of the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "signuplifecycle",
			Name:      "actions_total",
			Help:      "Lifecycle actions attempted, by action, reason and result.",
		}, []string{"action", "reason", "result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "signuplifecycle",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full lifecycle run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "signuplifecycle",
			Name:      "last_run_success",
			Help:      "1 if the last lifecycle run applied every action, 0 otherwise.",
		}),
	}
	reg.MustRegister(m.actions, m.runDuration, m.lastSuccess)
	return m
}

func (m *Metrics) observeAction(v Verdict, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.actions.WithLabelValues(v.Action.String(), v.Reason.String(), result).Inc()
}

func (m *Metrics) observeRun(d time.Duration, allSucceeded bool) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
	if allSucceeded {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
}
