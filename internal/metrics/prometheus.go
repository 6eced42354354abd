package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsCreated counts sync jobs created, by source.
	JobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncledger_jobs_created_total",
			Help: "Total number of sync jobs created",
		},
		[]string{"source"},
	)

	// DuplicatesSuppressed counts create requests answered with an
	// already-active job instead of a new one.
	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "syncledger_duplicates_suppressed_total",
			Help: "Total number of duplicate create requests suppressed by idempotency",
		},
	)

	// Transitions counts job status transitions, by target status.
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncledger_job_transitions_total",
			Help: "Total number of job status transitions",
		},
		[]string{"to"},
	)

	// ErrorsRecorded counts per-record sync errors, by error type.
	ErrorsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncledger_errors_recorded_total",
			Help: "Total number of sync errors recorded",
		},
		[]string{"error_type"},
	)

	// ErrorsResolved counts resolved sync errors, by resolution.
	ErrorsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncledger_errors_resolved_total",
			Help: "Total number of sync errors resolved",
		},
		[]string{"resolution"},
	)
)
