// Package inventory implements InventoryLedger: in-memory cost-basis per
// match per side plus current net inventory, fed by two write paths — the
// exchange's authoritative position stream and the fill stream (spec
// §4.5).
package inventory

import (
	"sync"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// Entry is one match's ledger state.
type Entry struct {
	CostLongA  int
	CountLongA int
	CostLongB  int
	CountLongB int
	Inventory  int

	// Latest clamped per-ticker components from the position stream,
	// retained so a later position update for the other ticker of the
	// same match can recompute Inventory without needing both tickers in
	// one message.
	aYes, aNo, bYes, bNo int
}

// Ledger is the process-wide InventoryLedger, keyed by match ID.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	logger  *zap.Logger
}

// New creates an empty Ledger.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		entries: make(map[string]*Entry),
		logger:  logger,
	}
}

func (l *Ledger) entryFor(matchID string) *Entry {
	e, ok := l.entries[matchID]
	if !ok {
		e = &Entry{}
		l.entries[matchID] = e
	}
	return e
}

// ApplyFill records a fill against a match's cost basis and immediately
// adjusts inventory by the fill's signed count (long-A legs increase
// inventory, long-B legs decrease it). This is the fast, possibly-stale
// write path; ApplyPosition later corrects any drift (spec §4.5:
// "fills are the primary source for quoting-horizon inventory changes,
// and position events correct drift on receipt").
//
// Cost is never decreased: it accumulates for as long as the session
// persists, matching the spec's statement that cost basis is authoritative
// for the session and reconstructable from the journal if restarted.
func (l *Ledger) ApplyFill(matchID string, leg types.Leg, price, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entryFor(matchID)
	if leg.IsLongA() {
		e.CostLongA += price * count
		e.CountLongA += count
		e.Inventory += count
	} else {
		e.CostLongB += price * count
		e.CountLongB += count
		e.Inventory -= count
	}
}

// ApplyPosition applies an authoritative PositionUpdate for one of the
// match's two tickers and recomputes inventory as
// (A_yes + B_no) - (A_no + B_yes), per spec §4.5. Each component is
// clamped at zero: the formula assumes the exchange reports non-negative
// per-ticker YES/NO counts (spec §9 open question #2); a negative
// component is logged rather than silently propagated, so a venue that
// violates the assumption is detected instead of corrupting inventory.
func (l *Ledger) ApplyPosition(matchID string, isTickerA bool, update types.PositionUpdate) {
	yes := clampNonNegative(update.YesNet, l.logger, matchID, "yes")
	no := clampNonNegative(update.NoNet, l.logger, matchID, "no")

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entryFor(matchID)
	if isTickerA {
		e.aYes, e.aNo = yes, no
	} else {
		e.bYes, e.bNo = yes, no
	}
	e.Inventory = (e.aYes + e.bNo) - (e.aNo + e.bYes)
}

func clampNonNegative(v int, logger *zap.Logger, matchID, which string) int {
	if v < 0 {
		logger.Warn("position-stream-reported-negative-count",
			zap.String("match-id", matchID),
			zap.String("side", which),
			zap.Int("value", v))
		return 0
	}
	return v
}

// Get returns a copy of a match's ledger entry.
func (l *Ledger) Get(matchID string) Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[matchID]
	if !ok {
		return Entry{}
	}
	return *e
}

// AvgCostLongA returns the average cost per contract of the long-A
// position, or 0 if there is no long-A exposure.
func (e Entry) AvgCostLongA() float64 {
	if e.CountLongA == 0 {
		return 0
	}
	return float64(e.CostLongA) / float64(e.CountLongA)
}

// AvgCostLongB returns the average cost per contract of the long-B
// position, or 0 if there is no long-B exposure.
func (e Entry) AvgCostLongB() float64 {
	if e.CountLongB == 0 {
		return 0
	}
	return float64(e.CostLongB) / float64(e.CountLongB)
}

// Remove discards a match's ledger entry (called on match removal).
func (l *Ledger) Remove(matchID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, matchID)
}
