package types

import "time"

// AddMatchRequest is the operator-supplied payload for "POST /api/matches"
// (spec §6). It lives in pkg/types rather than internal/app so both
// internal/app and pkg/httpserver can depend on it without an import cycle.
type AddMatchRequest struct {
	ID           string
	DisplayName  string
	Category     string
	TickerA      string
	TickerB      string
	OddsEventID  string
	TeamAName    string
	TeamBName    string
	DrawName     string
	OddsA        float64
	OddsB        float64
	OddsDraw     float64
	OrderSize    int
	InventoryCap int
	EventTime    time.Time
	MarketURL    string
}

// MatchSettingsRequest is the operator-supplied partial update for "POST
// /api/matches/{id}/settings" (spec §6). Nil fields are left unchanged.
type MatchSettingsRequest struct {
	Edge         *int
	OrderSize    *int
	InventoryCap *int
	EventTime    *time.Time
}

// Settings is the mutable set of global quoting tunables exposed by "POST
// /api/settings" (spec §6), already validated against their floors.
type Settings struct {
	CheckInterval      time.Duration
	StickyResetSecs    time.Duration
	OverbidCancelDelay time.Duration
}
