package app

import (
	"context"
	"fmt"

	"github.com/mselser95/quoter/internal/quoting"
	"github.com/mselser95/quoter/internal/theo"
	"github.com/mselser95/quoter/pkg/config"
	"github.com/mselser95/quoter/pkg/types"
)

func matchFromRequest(r types.AddMatchRequest) types.Match {
	theoA, theoB := theoFromOdds(r.OddsA, r.OddsB, r.OddsDraw)
	return types.Match{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		Category:     r.Category,
		TickerA:      r.TickerA,
		TickerB:      r.TickerB,
		OddsEventID:  r.OddsEventID,
		TeamAName:    r.TeamAName,
		TeamBName:    r.TeamBName,
		DrawName:     r.DrawName,
		OddsA:        r.OddsA,
		OddsB:        r.OddsB,
		TheoA:        theoA,
		TheoB:        theoB,
		OrderSize:    r.OrderSize,
		InventoryCap: r.InventoryCap,
		EventTime:    r.EventTime,
		MarketURL:    r.MarketURL,
	}
}

func theoFromOdds(oddsA, oddsB, oddsDraw float64) (int, int) {
	if oddsDraw > 0 {
		return theo.ThreeWay(oddsA, oddsB, oddsDraw)
	}
	return theo.TwoWay(oddsA, oddsB)
}

// AddMatches registers every match in a batch request (spec §6 "POST
// /api/matches/batch"), stopping at the first failure but leaving
// already-added matches registered.
func (a *App) AddMatches(ctx context.Context, reqs []types.AddMatchRequest) error {
	for _, r := range reqs {
		if err := a.AddMatch(ctx, matchFromRequest(r)); err != nil {
			return fmt.Errorf("add match %s: %w", r.ID, err)
		}
	}
	return nil
}

// StartMatch activates a match's quoting loop.
func (a *App) StartMatch(ctx context.Context, matchID string) error {
	if !a.world.Activate(ctx, matchID) {
		return fmt.Errorf("match %s not found or already past event time", matchID)
	}
	return nil
}

// StopMatch deactivates a match without discarding its state.
func (a *App) StopMatch(matchID string) error {
	if !a.world.Deactivate(matchID) {
		return fmt.Errorf("match %s not found", matchID)
	}
	return nil
}

// StartAllMatches activates every currently registered match.
func (a *App) StartAllMatches(ctx context.Context) (started int) {
	for _, id := range a.world.MatchIDs() {
		if a.world.Activate(ctx, id) {
			started++
		}
	}
	return started
}

// DeleteMatch removes a match entirely, stopping its tick loop.
func (a *App) DeleteMatch(matchID string) error {
	if _, ok := a.world.Get(matchID); !ok {
		return fmt.Errorf("match %s not found", matchID)
	}
	a.world.RemoveMatch(matchID)
	return nil
}

// DeleteAllMatches removes every currently registered match.
func (a *App) DeleteAllMatches() {
	for _, id := range a.world.MatchIDs() {
		a.world.RemoveMatch(id)
	}
}

// SetOdds manually overrides a match's odds and recomputes theo (spec §6
// "POST /api/matches/{id}/odds").
func (a *App) SetOdds(matchID string, oddsA, oddsB, oddsDraw float64) error {
	theoA, theoB := theoFromOdds(oddsA, oddsB, oddsDraw)
	if !a.world.UpdateOdds(matchID, theoA, theoB) {
		return fmt.Errorf("match %s not found", matchID)
	}
	return nil
}

// UpdateMatchSettings applies a partial per-match settings update (spec §6
// "POST /api/matches/{id}/settings").
func (a *App) UpdateMatchSettings(matchID string, s types.MatchSettingsRequest) error {
	ok := a.world.UpdateMatchSettings(matchID, quoting.MatchSettings{
		Edge:         s.Edge,
		OrderSize:    s.OrderSize,
		InventoryCap: s.InventoryCap,
		EventTime:    s.EventTime,
	})
	if !ok {
		return fmt.Errorf("match %s not found", matchID)
	}
	return nil
}

// RefreshOdds re-polls the odds provider for a match and applies the
// recomputed theo (spec §6 "POST /api/matches/{id}/refresh-odds"; spec §7
// "Odds-refresh failure: surface {error:…}; leave stored odds unchanged").
func (a *App) RefreshOdds(ctx context.Context, matchID string) error {
	m, ok := a.world.Get(matchID)
	if !ok {
		return fmt.Errorf("match %s not found", matchID)
	}
	theoA, theoB, err := a.odds.Theo(ctx, m.OddsEventID, m.TeamAName, m.TeamBName, m.DrawName)
	if err != nil {
		return fmt.Errorf("refresh odds: %w", err)
	}
	a.world.UpdateOdds(matchID, theoA, theoB)
	return nil
}

// UpdateSettings applies new global tunables after checking the floors
// spec §6 states, taking effect from the next evaluation/tick onward.
func (a *App) UpdateSettings(s types.Settings) error {
	if err := config.CheckTunableFloors(s.CheckInterval, s.StickyResetSecs, s.OverbidCancelDelay); err != nil {
		return err
	}

	cfg := a.world.Config()
	cfg.CheckInterval = s.CheckInterval
	cfg.StickyResetSecs = s.StickyResetSecs
	cfg.OverbidCancelDelay = s.OverbidCancelDelay
	a.world.SetConfig(cfg)
	a.recon.SetOverbidCancelDelay(s.OverbidCancelDelay)
	return nil
}

// Kill runs the emergency-cancel pass on demand (spec §6 "POST
// /api/kill"), sharing the same one-shot guard as shutdown so a kill
// immediately followed by a process signal does not double-cancel.
func (a *App) Kill(ctx context.Context) error {
	var err error
	a.emergencyCancelOnce.Do(func() {
		err = a.recon.EmergencyCancel(ctx)
	})
	return err
}

// SyncInventory reconciles InventoryLedger against the exchange's
// authoritative position listing for every tracked ticker (spec §6 "POST
// /api/sync-inventory").
func (a *App) SyncInventory(ctx context.Context) error {
	for _, m := range a.world.Snapshot() {
		for _, ticker := range []string{m.TickerA, m.TickerB} {
			positions, err := a.gateway.GetPositions(ctx, ticker)
			if err != nil {
				return fmt.Errorf("get positions for %s: %w", ticker, err)
			}
			isTickerA := ticker == m.TickerA
			for _, p := range positions {
				a.ledger.ApplyPosition(m.ID, isTickerA, p)
			}
		}
	}
	a.logger.Info("inventory-synced")
	return nil
}

// GetMatchPnL computes one match's arb/EV/AV decomposition, marking any
// open leftover to the book cache's current mid when unsettled.
func (a *App) GetMatchPnL(ctx context.Context, matchID string) (types.PnL, error) {
	m, ok := a.world.Get(matchID)
	var theoA, theoB *int
	if ok {
		theoA, theoB = &m.TheoA, &m.TheoB
	}
	return a.journal.CalculateMatchPnL(ctx, matchID, theoA, theoB, a.midPrice)
}

// GetPnLSummary returns period-bucketed P&L across every match (spec §6
// "GET /api/pnl/summary?period=…").
func (a *App) GetPnLSummary(ctx context.Context, period types.PeriodKind) ([]types.PeriodSummary, error) {
	return a.journal.GetPnLSummary(ctx, period, a.midPrice)
}

func (a *App) midPrice(ticker string) (int, bool) {
	book, err := a.books.Get(a.ctx, ticker)
	if err != nil {
		return 0, false
	}
	if book.BestYesBid <= 0 || book.BestNoBid <= 0 {
		return 0, false
	}
	return (book.BestYesBid + book.YesAsk()) / 2, true
}

// RecordHedge stores a manually entered hedge (spec §6 "POST
// /api/hedges").
func (a *App) RecordHedge(ctx context.Context, h types.Hedge) (int64, error) {
	return a.journal.RecordHedge(ctx, h)
}

// ListHedges returns every hedge recorded against a match (spec §6 "GET
// /api/hedges").
func (a *App) ListHedges(ctx context.Context, matchID string) ([]types.Hedge, error) {
	return a.journal.GetHedgesForMatch(ctx, matchID)
}

// SettleHedge records a hedge's outcome (spec §6 "PUT /api/hedges/{id}").
func (a *App) SettleHedge(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) error {
	return a.journal.SettleHedge(ctx, hedgeID, outcome)
}

// DeleteHedge removes a manually entered hedge (spec §6 "DELETE
// /api/hedges/{id}").
func (a *App) DeleteHedge(ctx context.Context, hedgeID int64) error {
	return a.journal.DeleteHedge(ctx, hedgeID)
}

// Snapshot returns every currently known match, for the dashboard push
// channel and operator diagnostics.
func (a *App) Snapshot() []types.Match {
	return a.world.Snapshot()
}

// RestingOrders returns every order the reconciler believes is currently
// resting, for the dashboard push channel.
func (a *App) RestingOrders() []types.RestingOrder {
	return a.recon.RestingOrders()
}
