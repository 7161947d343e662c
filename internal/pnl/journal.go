// Package pnl implements PnLJournal: durable fill/hedge/match bookkeeping
// plus the arb/EV/AV decomposition and period-bucketed summaries described
// in spec §4.6, adapted from the teacher's narrow Storage interface
// (internal/storage) into a richer journal surface.
package pnl

import (
	"context"
	"fmt"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// Store is the persistence surface a Journal drives. PostgresStore and
// MemoryStore both implement it.
type Store interface {
	UpsertMatch(ctx context.Context, m types.PnLMatch) error
	GetMatch(ctx context.Context, matchID string) (*types.PnLMatch, error)
	GetAllMatches(ctx context.Context) ([]types.PnLMatch, error)
	MarkMatchSettled(ctx context.Context, matchID string, resultA string) error

	InsertFill(ctx context.Context, f types.Fill) (inserted bool, err error)
	LinkFillsToMatch(ctx context.Context, matchID, tickerA, tickerB string) (int64, error)
	GetFillsForMatch(ctx context.Context, matchID string) ([]types.Fill, error)
	GetAllFillsByMatch(ctx context.Context) (map[string][]types.Fill, error)

	InsertHedge(ctx context.Context, h types.Hedge) (int64, error)
	UpdateHedgeOutcome(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) (bool, error)
	GetHedgesForMatch(ctx context.Context, matchID string) ([]types.Hedge, error)
	GetAllHedgesByMatch(ctx context.Context) (map[string][]types.Hedge, error)
	DeleteHedge(ctx context.Context, hedgeID int64) (bool, error)

	Close() error
}

// Journal is the PnLJournal: a Store plus the pure arb/EV/AV computation
// and period-summary logic layered on top (spec §4.6).
type Journal struct {
	store  Store
	logger *zap.Logger
}

// New wraps a Store with the P&L computation logic.
func New(store Store, logger *zap.Logger) *Journal {
	return &Journal{store: store, logger: logger}
}

// UpsertMatch records or updates a match's durable metadata.
func (j *Journal) UpsertMatch(ctx context.Context, m types.PnLMatch) error {
	return j.store.UpsertMatch(ctx, m)
}

// MarkMatchSettled records a match's settlement result.
func (j *Journal) MarkMatchSettled(ctx context.Context, matchID, resultA string) error {
	return j.store.MarkMatchSettled(ctx, matchID, resultA)
}

// RecordFill inserts a fill idempotently by FillID and links it to its
// match, creating the match row if this is the first fill seen for it.
func (j *Journal) RecordFill(ctx context.Context, f types.Fill, tickerA, tickerB string) error {
	inserted, err := j.store.InsertFill(ctx, f)
	if err != nil {
		return fmt.Errorf("insert fill %s: %w", f.FillID, err)
	}
	if !inserted {
		fillsDuplicateTotal.Inc()
		j.logger.Debug("duplicate-fill-ignored", zap.String("fill-id", f.FillID))
		return nil
	}
	fillsRecordedTotal.Inc()

	if _, err := j.store.GetMatch(ctx, f.MatchID); err != nil {
		if err := j.store.UpsertMatch(ctx, types.PnLMatch{ID: f.MatchID, TickerA: tickerA, TickerB: tickerB}); err != nil {
			return fmt.Errorf("upsert match %s: %w", f.MatchID, err)
		}
	}
	return nil
}

// RecordHedge inserts a manually-entered external hedge against a match.
func (j *Journal) RecordHedge(ctx context.Context, h types.Hedge) (int64, error) {
	id, err := j.store.InsertHedge(ctx, h)
	if err != nil {
		return 0, err
	}
	hedgesRecordedTotal.Inc()
	return id, nil
}

// SettleHedge records a hedge's win/loss/push outcome.
func (j *Journal) SettleHedge(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) error {
	ok, err := j.store.UpdateHedgeOutcome(ctx, hedgeID, outcome)
	if err != nil {
		return fmt.Errorf("update hedge %d: %w", hedgeID, err)
	}
	if !ok {
		return fmt.Errorf("hedge %d not found", hedgeID)
	}
	return nil
}

// GetHedgesForMatch returns every hedge recorded against a match.
func (j *Journal) GetHedgesForMatch(ctx context.Context, matchID string) ([]types.Hedge, error) {
	return j.store.GetHedgesForMatch(ctx, matchID)
}

// DeleteHedge removes a manually-entered hedge (operator "DELETE
// /api/hedges/{id}", spec §6).
func (j *Journal) DeleteHedge(ctx context.Context, hedgeID int64) error {
	ok, err := j.store.DeleteHedge(ctx, hedgeID)
	if err != nil {
		return fmt.Errorf("delete hedge %d: %w", hedgeID, err)
	}
	if !ok {
		return fmt.Errorf("hedge %d not found", hedgeID)
	}
	return nil
}

// CalculateMatchPnL fetches a match's fills, hedges, and metadata and
// computes its arb/EV/AV/hedge/fee decomposition (spec §4.6). theoA/theoB
// override the stored theo when non-nil; getMidPrice, if supplied, marks
// open leftover positions to market when the match is unsettled.
func (j *Journal) CalculateMatchPnL(ctx context.Context, matchID string, theoA, theoB *int, getMidPrice MidPriceFunc) (types.PnL, error) {
	match, err := j.store.GetMatch(ctx, matchID)
	if err != nil {
		return types.PnL{}, fmt.Errorf("get match %s: %w", matchID, err)
	}
	fills, err := j.store.GetFillsForMatch(ctx, matchID)
	if err != nil {
		return types.PnL{}, fmt.Errorf("get fills for %s: %w", matchID, err)
	}
	hedges, err := j.store.GetHedgesForMatch(ctx, matchID)
	if err != nil {
		return types.PnL{}, fmt.Errorf("get hedges for %s: %w", matchID, err)
	}
	return ComputeMatchPnL(*match, fills, hedges, theoA, theoB, getMidPrice), nil
}

// GetPnLSummary aggregates realized/unrealized P&L across every match,
// bucketed by the given period granularity (spec §4.6).
func (j *Journal) GetPnLSummary(ctx context.Context, period types.PeriodKind, getMidPrice MidPriceFunc) ([]types.PeriodSummary, error) {
	matches, err := j.store.GetAllMatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all matches: %w", err)
	}
	fillsByMatch, err := j.store.GetAllFillsByMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all fills: %w", err)
	}
	hedgesByMatch, err := j.store.GetAllHedgesByMatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all hedges: %w", err)
	}
	return ComputeSummary(matches, fillsByMatch, hedgesByMatch, period, getMidPrice), nil
}

// Close releases the underlying store's resources.
func (j *Journal) Close() error {
	return j.store.Close()
}
