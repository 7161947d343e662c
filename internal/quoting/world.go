// Package quoting implements QuotingCore (spec §4.3): the per-match
// evaluation that turns a book/fill/tick event into four leg-level
// reconciliation requests. World is the single owned value holding every
// active match's mutable state, replacing the package-level globals the
// teacher's arbitrage detector used to hold opportunity state (spec §9:
// "global mutable singletons ... become a single owned World value").
package quoting

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/bookcache"
	"github.com/mselser95/quoter/internal/inventory"
	"github.com/mselser95/quoter/internal/pnl"
	"github.com/mselser95/quoter/internal/reconciler"
	"github.com/mselser95/quoter/pkg/types"
)

// Config tunes QuotingCore's behavior; every field has the operator-facing
// floor spec §6 states, enforced by pkg/config before reaching World.
type Config struct {
	EdgeMin            int
	FeeBuffer          int // REBAL_FEE_BUFFER, cfg.RebalanceFeeBuffer (spec §9 decision 3)
	CheckInterval      time.Duration
	StickyResetSecs    time.Duration
	OverbidCancelDelay time.Duration
}

// World owns every active Match plus the collaborators QuotingCore drives.
// All access to the match map and per-match mutable fields goes through
// World's methods; there is no other path to this state.
type World struct {
	mu      sync.RWMutex
	matches map[string]*matchState
	tickers map[string]string // ticker -> matchID

	books      *bookcache.Cache
	reconciler *reconciler.Reconciler
	ledger     *inventory.Ledger
	journal    *pnl.Journal
	logger     *zap.Logger

	cfgMu sync.RWMutex
	cfg   Config

	cancelTicks map[string]context.CancelFunc
}

// matchState is one match's QuotingCore-owned state: the immutable
// identity fields plus the mutable stickiness clock per leg.
type matchState struct {
	mu    sync.Mutex
	match types.Match

	lastDrop map[types.Leg]time.Time // last time a leg's price was dropped (for retest timing)
}

// NewWorld creates an empty World.
func NewWorld(cfg Config, books *bookcache.Cache, rec *reconciler.Reconciler, ledger *inventory.Ledger, journal *pnl.Journal, logger *zap.Logger) *World {
	return &World{
		matches:     make(map[string]*matchState),
		tickers:     make(map[string]string),
		books:       books,
		reconciler:  rec,
		ledger:      ledger,
		journal:     journal,
		logger:      logger,
		cfg:         cfg,
		cancelTicks: make(map[string]context.CancelFunc),
	}
}

// AddMatch registers a new match in state MatchNew and indexes its two
// tickers so incoming book/fill/position events can be routed to it.
func (w *World) AddMatch(ctx context.Context, m types.Match) {
	m.State = types.MatchNew

	w.mu.Lock()
	w.matches[m.ID] = &matchState{match: m, lastDrop: make(map[types.Leg]time.Time)}
	w.tickers[m.TickerA] = m.ID
	w.tickers[m.TickerB] = m.ID
	w.mu.Unlock()

	if w.journal != nil {
		theoA, theoB, category, eventTime := m.TheoA, m.TheoB, m.Category, m.EventTime
		_ = w.journal.UpsertMatch(ctx, types.PnLMatch{
			ID:        m.ID,
			TickerA:   m.TickerA,
			TickerB:   m.TickerB,
			TheoA:     &theoA,
			TheoB:     &theoB,
			EventTime: &eventTime,
			Category:  &category,
		})
	}
}

// RemoveMatch discards a match's state (terminal per spec §4.3's state
// machine) and stops its tick scheduler.
func (w *World) RemoveMatch(matchID string) {
	w.mu.Lock()
	ms, ok := w.matches[matchID]
	if ok {
		delete(w.matches, matchID)
		delete(w.tickers, ms.match.TickerA)
		delete(w.tickers, ms.match.TickerB)
	}
	w.mu.Unlock()

	w.StopTicking(matchID)
	w.ledger.Remove(matchID)
}

// Activate transitions a match New/Inactive -> Active, allowed only
// before event_time (spec §4.3: "Transition from Inactive back to Active
// is allowed only before event-time"), and starts its periodic
// re-evaluation loop.
func (w *World) Activate(ctx context.Context, matchID string) bool {
	ms := w.stateFor(matchID)
	if ms == nil {
		return false
	}

	ms.mu.Lock()
	if time.Now().After(ms.match.EventTime) || time.Now().Equal(ms.match.EventTime) {
		ms.mu.Unlock()
		return false
	}
	ms.match.State = types.MatchActive
	ms.mu.Unlock()

	w.StartTicking(ctx, matchID)
	return true
}

// Deactivate transitions a match to Inactive without removing it, and
// stops its periodic re-evaluation loop.
func (w *World) Deactivate(matchID string) bool {
	ms := w.stateFor(matchID)
	if ms == nil {
		return false
	}

	ms.mu.Lock()
	ms.match.State = types.MatchInactive
	ms.mu.Unlock()

	w.StopTicking(matchID)
	return true
}

func (w *World) stateFor(matchID string) *matchState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.matches[matchID]
}

// MatchForTicker resolves a ticker to its owning match ID, or "" if none.
func (w *World) MatchForTicker(ticker string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tickers[ticker]
}

// Snapshot returns a copy of every currently known match, for operator
// diagnostics and the dashboard push channel.
func (w *World) Snapshot() []types.Match {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]types.Match, 0, len(w.matches))
	for _, ms := range w.matches {
		ms.mu.Lock()
		out = append(out, ms.match)
		ms.mu.Unlock()
	}
	return out
}

// Get returns a copy of one match, and whether it exists.
func (w *World) Get(matchID string) (types.Match, bool) {
	ms := w.stateFor(matchID)
	if ms == nil {
		return types.Match{}, false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.match, true
}

// MatchIDs returns every currently registered match ID.
func (w *World) MatchIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ids := make([]string, 0, len(w.matches))
	for id := range w.matches {
		ids = append(ids, id)
	}
	return ids
}

// UpdateOdds refreshes a match's theo prices from a new odds read (operator
// "refresh-odds" endpoint, or a periodic odds-provider poll).
func (w *World) UpdateOdds(matchID string, theoA, theoB int) bool {
	ms := w.stateFor(matchID)
	if ms == nil {
		return false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.match.TheoA = theoA
	ms.match.TheoB = theoB
	return true
}

// MatchSettings is the per-match subset of tunables exposed by "POST
// /api/matches/{id}/settings" (spec §6), as distinct from the global
// tunables in Config/SetConfig.
type MatchSettings struct {
	Edge         *int
	OrderSize    *int
	InventoryCap *int
	EventTime    *time.Time
}

// UpdateMatchSettings applies a partial per-match settings update; nil
// fields are left unchanged.
func (w *World) UpdateMatchSettings(matchID string, s MatchSettings) bool {
	ms := w.stateFor(matchID)
	if ms == nil {
		return false
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if s.Edge != nil {
		ms.match.Edge = *s.Edge
	}
	if s.OrderSize != nil {
		ms.match.OrderSize = *s.OrderSize
	}
	if s.InventoryCap != nil {
		ms.match.InventoryCap = *s.InventoryCap
	}
	if s.EventTime != nil {
		ms.match.EventTime = *s.EventTime
	}
	return true
}

// Config returns a copy of World's current tunables.
func (w *World) Config() Config {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.cfg
}

// SetConfig replaces World's tunables, taking effect on the next
// evaluation of every match (operator "POST /api/settings", spec §6).
// Callers must enforce the check_interval/sticky_reset_secs/
// overbid_cancel_delay floors via config.CheckTunableFloors before
// calling this; World itself trusts the value it's handed.
func (w *World) SetConfig(cfg Config) {
	w.cfgMu.Lock()
	w.cfg = cfg
	w.cfgMu.Unlock()
}

func (w *World) getCfg() Config {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.cfg
}

// breakeven computes the rebalance ceiling for the opposite long side from
// one side's cost basis (spec §4.3 step 3): for the long-A cost basis,
// breakeven_for_B = 99 - ceil(avg_cost_A) - FEE_BUFFER.
func breakeven(avgCost float64, feeBuffer int) int {
	return 99 - int(math.Ceil(avgCost)) - feeBuffer
}
