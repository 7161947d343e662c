package quoting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_quoting_evaluations_total",
		Help: "Total per-match evaluations run by QuotingCore.",
	})

	rebalanceModeActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quoter_quoting_rebalance_mode",
		Help: "1 if a match is currently in rebalance mode on a given long side, else 0.",
	}, []string{"match_id", "side"})

	matchesDeactivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_quoting_matches_deactivated_total",
		Help: "Matches deactivated because event_time was reached.",
	})

	fillsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_quoting_fills_applied_total",
		Help: "Fill events applied to the inventory ledger and PnL journal.",
	})

	positionsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quoter_quoting_positions_applied_total",
		Help: "Authoritative position updates applied to the inventory ledger.",
	})
)
