package pnl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fillsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_pnl_fills_recorded_total",
		Help: "Total fills durably recorded by the P&L journal.",
	})

	fillsDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_pnl_fills_duplicate_total",
		Help: "Fills rejected as duplicates by fill-id idempotency.",
	})

	hedgesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_pnl_hedges_recorded_total",
		Help: "External hedges recorded against matches.",
	})
)
