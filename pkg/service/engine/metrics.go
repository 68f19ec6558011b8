package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine's Prometheus collectors.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ActionFailures *prometheus.CounterVec
	RunsSkipped    prometheus.Counter
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediamate",
			Subsystem: "engine",
			Name:      "workflow_runs_total",
			Help:      "Workflow runs by final state.",
		}, []string{"state"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediamate",
			Subsystem: "engine",
			Name:      "workflow_run_duration_seconds",
			Help:      "Wall time of one workflow run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ActionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediamate",
			Subsystem: "engine",
			Name:      "action_failures_total",
			Help:      "Actions that finished unsuccessfully, by type.",
		}, []string{"action_type"}),
		RunsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mediamate",
			Subsystem: "engine",
			Name:      "workflow_runs_skipped_total",
			Help:      "Timer fires skipped because the workflow was already running.",
		}),
	}
}
