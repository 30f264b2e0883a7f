// Package metrics exposes referee state as prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsLogged counts journal entries by event type.
	EventsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referee",
		Subsystem: "events",
		Name:      "logged_total",
		Help:      "Total events appended to the run journal",
	}, []string{"type"})

	// PenaltiesApplied counts penalty applications.
	// Labels: category, tier (1, 2, terminal)
	PenaltiesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referee",
		Subsystem: "penalty",
		Name:      "applied_total",
		Help:      "Total time penalties applied by category and tier",
	}, []string{"category", "tier"})

	// ReportsProcessed counts validated reports by outcome.
	ReportsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referee",
		Subsystem: "reports",
		Name:      "processed_total",
		Help:      "Total target reports validated by outcome",
	}, []string{"outcome"})

	// Score is the last computed total score.
	Score = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "referee",
		Name:      "score",
		Help:      "Current total score in seconds",
	})

	// TimePenalty is the accumulated time penalty.
	TimePenalty = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "referee",
		Name:      "time_penalty_seconds",
		Help:      "Accumulated time penalty in seconds",
	})

	// RunState is 1 for the current lifecycle state and 0 for the others.
	RunState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "referee",
		Name:      "run_state",
		Help:      "Current run lifecycle state",
	}, []string{"state"})

	// BoundaryExits counts robots leaving the geofence.
	BoundaryExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "referee",
		Subsystem: "boundary",
		Name:      "exits_total",
		Help:      "Total geofence exits by robot",
	}, []string{"robot"})

	// TickDuration measures controller tick latency.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "referee",
		Name:      "tick_duration_seconds",
		Help:      "Controller tick latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
)

// States lists every lifecycle state label in order.
var States = []string{"init", "setup", "running", "finished"}

// SetRunState marks state as current.
func SetRunState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		RunState.WithLabelValues(s).Set(v)
	}
}
