package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow-level metrics. Registered once at package init so that engines can
// be created freely (tests included) without duplicate registration.
//
//nolint:gochecknoglobals // promauto registration happens once per process
var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_stage_duration_seconds",
			Help:    "Duration of workflow stage executions in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_runs_total",
			Help: "Total workflow runs by terminal route",
		},
		[]string{"route"},
	)
	iterationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_validator_rejections_total",
			Help: "Total validator rejections across all runs",
		},
	)
	forcedApprovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workflow_forced_approvals_total",
			Help: "Total drafts accepted after exhausting the revision budget",
		},
	)
)

func observeStage(stage Stage, d time.Duration) {
	stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func countRun(route string) {
	runsTotal.WithLabelValues(route).Inc()
}
