package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StepsTotal counts orchestrator turns by phase and resulting action.
	StepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "orchestrator",
		Name:      "steps_total",
		Help:      "Orchestrator turns by phase and action kind.",
	}, []string{"phase", "action"})

	// StoreErrors counts backlog failures the machine tolerated.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rdteam",
		Subsystem: "orchestrator",
		Name:      "store_errors_total",
		Help:      "Backlog errors tolerated by the orchestrator, by operation.",
	}, []string{"op"})
)
