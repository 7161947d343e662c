package quoting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/bookcache"
	"github.com/mselser95/quoter/pkg/types"
)

// Run drives QuotingCore from the two live event sources: book-cache
// updates (which re-evaluate the owning match immediately, so a book
// move is reflected the same tick it's observed) and the exchange's
// authenticated fill/position stream (which updates InventoryLedger and
// the PnL journal before triggering re-evaluation). It blocks until ctx
// is cancelled.
func (w *World) Run(ctx context.Context, bookUpdates <-chan bookcache.Update, streamEvents <-chan types.StreamEvent) {
	for {
		select {
		case <-ctx.Done():
			return

		case u, ok := <-bookUpdates:
			if !ok {
				bookUpdates = nil
				continue
			}
			if matchID := w.MatchForTicker(u.Ticker); matchID != "" {
				w.Evaluate(ctx, matchID)
			}

		case ev, ok := <-streamEvents:
			if !ok {
				streamEvents = nil
				continue
			}
			w.handleStreamEvent(ctx, ev)
		}
	}
}

func (w *World) handleStreamEvent(ctx context.Context, ev types.StreamEvent) {
	switch ev.Kind {
	case types.EventFill:
		w.handleFill(ctx, ev.Fill)
	case types.EventPosition:
		w.handlePosition(ctx, ev.Position)
	case types.EventOrderbookSnapshot:
		w.books.ApplySnapshot(ev.Snapshot)
	case types.EventOrderbookDelta:
		w.books.ApplyDelta(ev.Delta)
	}
}

func (w *World) handleFill(ctx context.Context, f types.Fill) {
	matchID := w.MatchForTicker(f.Ticker)
	if matchID == "" {
		w.logger.Warn("fill-for-unknown-match", zap.String("ticker", f.Ticker), zap.String("fill-id", f.FillID))
		return
	}
	f.MatchID = matchID

	ms := w.stateFor(matchID)
	if ms == nil {
		return
	}
	ms.mu.Lock()
	m := ms.match
	ms.mu.Unlock()

	leg := legForFill(m, f.Ticker, f.Side)
	w.ledger.ApplyFill(matchID, leg, f.Price, f.Count)

	if w.journal != nil {
		if err := w.journal.RecordFill(ctx, f, m.TickerA, m.TickerB); err != nil {
			w.logger.Warn("pnl-record-fill-failed", zap.String("match-id", matchID), zap.Error(err))
		}
	}

	fillsAppliedTotal.Inc()
	w.Evaluate(ctx, matchID)
}

func (w *World) handlePosition(ctx context.Context, p types.PositionUpdate) {
	matchID := w.MatchForTicker(p.Ticker)
	if matchID == "" {
		w.logger.Warn("position-for-unknown-match", zap.String("ticker", p.Ticker))
		return
	}

	ms := w.stateFor(matchID)
	if ms == nil {
		return
	}
	ms.mu.Lock()
	isTickerA := p.Ticker == ms.match.TickerA
	ms.mu.Unlock()

	w.ledger.ApplyPosition(matchID, isTickerA, p)
	positionsAppliedTotal.Inc()
	w.Evaluate(ctx, matchID)
}

// legForFill maps a fill's (ticker, side) onto the match's four-leg
// vocabulary.
func legForFill(m types.Match, ticker string, side types.Side) types.Leg {
	isTickerA := ticker == m.TickerA
	switch {
	case isTickerA && side == types.SideYes:
		return types.LegAYes
	case isTickerA && side == types.SideNo:
		return types.LegANo
	case !isTickerA && side == types.SideYes:
		return types.LegBYes
	default:
		return types.LegBNo
	}
}

// StartTicking begins this match's periodic re-evaluation loop, run at
// cfg.CheckInterval so sticky-retest windows and rebalance ceilings are
// re-checked even when the book is quiet. Calling it again while the
// match's tick goroutine is running is a no-op; once that goroutine has
// been stopped, the next call starts a new one.
func (w *World) StartTicking(parent context.Context, matchID string) {
	w.mu.Lock()
	if _, exists := w.cancelTicks[matchID]; exists {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancelTicks[matchID] = cancel
	w.mu.Unlock()

	interval := w.getCfg().CheckInterval
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Evaluate(ctx, matchID)
			}
		}
	}()
}

// StopTicking cancels a match's periodic re-evaluation loop without
// discarding its state.
func (w *World) StopTicking(matchID string) {
	w.mu.Lock()
	cancel, ok := w.cancelTicks[matchID]
	if ok {
		delete(w.cancelTicks, matchID)
	}
	w.mu.Unlock()
	if ok {
		cancel()
	}
}
