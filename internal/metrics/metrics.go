// Package metrics exposes Prometheus counters for the loan engine and
// its background jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SchedulesGenerated counts generated payment schedules by lending model.
	SchedulesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prestadia_schedules_generated_total",
			Help: "Payment schedules generated, labeled by lending model and source",
		},
		[]string{"lending_model", "source"},
	)

	// EngineErrors counts rejected engine inputs.
	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prestadia_engine_errors_total",
			Help: "Engine calculation errors by type",
		},
		[]string{"error_type"},
	)

	// PenaltyRuns counts penalty recalculation job executions.
	PenaltyRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prestadia_penalty_runs_total",
			Help: "Penalty recalculation runs by outcome",
		},
		[]string{"status"},
	)

	// PaymentsPosted counts posted and reverted payments.
	PaymentsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prestadia_payments_total",
			Help: "Payments posted against installments, labeled by action",
		},
		[]string{"action"},
	)
)

// Schedule generation sources.
const (
	SourceLoan    = "loan"
	SourcePreview = "preview"
)
