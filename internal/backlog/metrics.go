package backlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsSkipped counts records that could not be parsed during a listing.
	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rdteam",
			Subsystem: "backlog",
			Name:      "records_skipped_total",
			Help:      "Total number of unreadable task records skipped while listing",
		},
	)

	// Writes counts write operations.
	// Labels: op (create, update), result (ok, missing, error)
	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rdteam",
			Subsystem: "backlog",
			Name:      "writes_total",
			Help:      "Total number of backlog write operations",
		},
		[]string{"op", "result"},
	)
)
