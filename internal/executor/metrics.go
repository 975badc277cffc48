package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts finished runs.
	// Labels: result (completed, turn_limit, error)
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "executor",
		Name:      "runs_total",
		Help:      "Executor runs by result.",
	}, []string{"result"})

	// TurnsTotal counts model calls made by runs before the summary turn.
	TurnsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "executor",
		Name:      "turns_total",
		Help:      "Executor model turns.",
	})

	// ModeTransitions counts mode changes by the mode entered.
	ModeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "executor",
		Name:      "mode_transitions_total",
		Help:      "Executor mode transitions by mode entered.",
	}, []string{"mode"})

	// ActiveRuns is the number of runs in flight.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rdteam",
		Subsystem: "executor",
		Name:      "active_runs",
		Help:      "Executor runs in flight.",
	})
)
