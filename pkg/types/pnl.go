package types

import "time"

// PnLMatch is one row of pnl_matches: durable per-match metadata, one row
// per match ever seen regardless of whether it is still active.
type PnLMatch struct {
	ID        string
	TickerA   string
	TickerB   string
	TheoA     *int
	TheoB     *int
	EventTime *time.Time
	SettledAt *time.Time
	ResultA   *string // "yes", "no", or nil (unsettled)
	Category  *string
}

// HedgeOutcome is the settlement outcome of a manually recorded hedge.
type HedgeOutcome string

const (
	HedgeWin  HedgeOutcome = "win"
	HedgeLoss HedgeOutcome = "loss"
	HedgePush HedgeOutcome = "push"
)

// Hedge is an external hedge the operator records manually against a
// match (spec §3 "Hedge").
type Hedge struct {
	ID        int64
	MatchID   string
	Platform  string
	Side      string // "A" or "B"
	AmountUSD float64
	Odds      float64 // decimal odds
	Outcome   *HedgeOutcome
	CreatedAt time.Time
}

// PnL is the decomposed per-match profit/loss breakdown computed by
// PnLJournal.CalculateMatchPnL (spec §4.6).
type PnL struct {
	Settled     bool
	ArbCents    int
	EVCents     int
	AVCents     int
	DeltaCents  int
	HedgeUSD    float64
	FeesCents   int
	PnLUSD      float64
	Pairs       int
	LeftoverA   int
	LeftoverB   int
}

// PeriodKind selects the bucketing granularity for PnLJournal's period
// summary query.
type PeriodKind string

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
)

// PeriodSummary is one bucket of PnLJournal.GetPnLSummary.
type PeriodSummary struct {
	Period   string
	ArbUSD   float64
	EVUSD    float64
	AVUSD    float64
	DeltaUSD float64
	HedgeUSD float64
	FeesUSD  float64
	PnLUSD   float64
}
