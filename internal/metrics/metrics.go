// Package metrics defines the Prometheus instrumentation for the alert
// evaluation engine. Collectors are registered on the default registry and
// exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tick metrics
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherwatch_ticks_total",
			Help: "Total number of evaluation ticks",
		},
		[]string{"result"}, // result: ok, error, skipped
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weatherwatch_tick_duration_seconds",
			Help:    "Evaluation tick duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherwatch_fetches_total",
			Help: "Total number of per-location weather fetches",
		},
		[]string{"result"}, // result: ok, failed
	)

	// Alert metrics
	AlertsEvaluatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherwatch_alerts_evaluated_total",
			Help: "Total number of alert condition evaluations",
		},
	)

	AlertsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherwatch_alerts_skipped_total",
			Help: "Total number of alerts skipped due to data errors",
		},
	)

	NotificationsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherwatch_notifications_sent_total",
			Help: "Total number of triggered-alert notifications sent",
		},
	)
)
