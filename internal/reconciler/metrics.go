package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_reconciler_actions_total",
		Help: "Reconciliation outcomes by action taken.",
	}, []string{"action"})

	reconcileErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_reconciler_errors_total",
		Help: "Gateway errors encountered while reconciling, by call type.",
	}, []string{"call"})

	reconcileDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quoter_reconciler_duration_seconds",
		Help:    "Time to process one reconciliation request, lock held through gateway I/O.",
		Buckets: prometheus.DefBuckets,
	})

	emergencyCancelTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_reconciler_emergency_cancel_total",
		Help: "Total orders cancelled during an emergency-cancel pass.",
	})
)
