package quoting

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/pricer"
	"github.com/mselser95/quoter/internal/reconciler"
	"github.com/mselser95/quoter/pkg/types"
)

// legSpec binds one of the four tradable legs to its ticker, order-book
// side, and which long side it belongs to (spec §4.3 step 4: "YES-bid side
// for YES legs, NO-bid side for NO legs").
type legSpec struct {
	leg    types.Leg
	ticker string
	side   types.Side
}

func legSpecs(m types.Match) [4]legSpec {
	return [4]legSpec{
		{leg: types.LegAYes, ticker: m.TickerA, side: types.SideYes},
		{leg: types.LegANo, ticker: m.TickerA, side: types.SideNo},
		{leg: types.LegBYes, ticker: m.TickerB, side: types.SideYes},
		{leg: types.LegBNo, ticker: m.TickerB, side: types.SideNo},
	}
}

// Evaluate runs one full QuotingCore pass for a match: the event-time
// cutoff, inventory gating, rebalance-ceiling computation, and four-leg
// AdaptivePricer calls, dispatching the resulting targets to the
// reconciler (spec §4.3).
func (w *World) Evaluate(ctx context.Context, matchID string) {
	ms := w.stateFor(matchID)
	if ms == nil {
		return
	}

	ms.mu.Lock()
	m := ms.match
	ms.mu.Unlock()

	if m.State != types.MatchActive {
		return
	}

	evaluationsTotal.Inc()

	// Step 1: event-time cutoff.
	if !time.Now().Before(m.EventTime) {
		w.Deactivate(matchID)
		w.cancelAllLegs(ctx, m)
		matchesDeactivatedTotal.Inc()
		return
	}

	entry := w.ledger.Get(matchID)

	// Step 2: inventory gates.
	canBidLongA := entry.Inventory < m.InventoryCap
	canBidLongB := entry.Inventory > -m.InventoryCap

	// Step 3: rebalance ceilings from cost basis. When one long side is
	// capped, the opposite side's effective theo is elevated toward the
	// capped side's breakeven price, so AdaptivePricer bids aggressively
	// enough to actually unwind the position.
	cfg := w.getCfg()
	edge := m.Edge
	if edge == 0 {
		edge = cfg.EdgeMin
	}
	effTheoLongA, effTheoLongB := m.TheoA, m.TheoB
	rebalanceA, rebalanceB := false, false

	if !canBidLongA && entry.CountLongA > 0 {
		breakevenForB := breakeven(entry.AvgCostLongA(), cfg.FeeBuffer)
		if breakevenForB > m.TheoB-edge {
			effTheoLongB = breakevenForB + edge
			rebalanceB = true
		}
	}
	if !canBidLongB && entry.CountLongB > 0 {
		breakevenForA := breakeven(entry.AvgCostLongB(), cfg.FeeBuffer)
		if breakevenForA > m.TheoA-edge {
			effTheoLongA = breakevenForA + edge
			rebalanceA = true
		}
	}
	w.setRebalanceGauge(matchID, "A", rebalanceA)
	w.setRebalanceGauge(matchID, "B", rebalanceB)

	gates := legGates{
		canBidLongA: canBidLongA,
		canBidLongB: canBidLongB,
		rebalanceA:  rebalanceA,
		rebalanceB:  rebalanceB,
		theoLongA:   effTheoLongA,
		theoLongB:   effTheoLongB,
		edge:        edge,
	}

	// Step 4/5: per-leg AdaptivePricer evaluation and dispatch.
	for _, spec := range legSpecs(m) {
		w.evaluateLeg(ctx, ms, m, spec, gates)
	}
}

// legGates bundles step 2/3's per-match results so evaluateLeg can look up
// the applicable gate/theo/must-quote state for whichever long side its
// leg belongs to.
type legGates struct {
	canBidLongA, canBidLongB bool
	rebalanceA, rebalanceB   bool
	theoLongA, theoLongB     int
	edge                     int
}

func (w *World) evaluateLeg(ctx context.Context, ms *matchState, m types.Match, spec legSpec, gates legGates) {
	key := types.OrderKey{MatchID: m.ID, Ticker: spec.ticker, Side: spec.side}
	isLongA := spec.leg.IsLongA()

	canBid := gates.canBidLongB
	if isLongA {
		canBid = gates.canBidLongA
	}
	if !canBid {
		w.reconciler.Reconcile(ctx, key, reconciler.Target{Kind: reconciler.TargetGated})
		return
	}

	theo := gates.theoLongB
	mustQuote := gates.rebalanceB
	if isLongA {
		theo = gates.theoLongA
		mustQuote = gates.rebalanceA
	}

	book, err := w.books.Get(ctx, spec.ticker)
	if err != nil {
		w.logger.Warn("quoting-book-unavailable",
			zap.String("match-id", m.ID), zap.String("ticker", spec.ticker), zap.Error(err))
		return
	}

	best, second, bestQty := bookSide(book, spec.side)
	current := w.reconciler.CurrentPrice(key)
	sticky, isRetest := w.stickyState(ms, spec.leg)

	result := pricer.Decide(pricer.Input{
		Theo:      theo,
		Best:      best,
		Second:    second,
		BestQty:   bestQty,
		Current:   current,
		OurSize:   m.OrderSize,
		EdgeMin:   gates.edge,
		Side:      pricer.SideBid,
		Sticky:    sticky,
		IsRetest:  isRetest,
		MustQuote: mustQuote,
	})

	w.reconciler.Reconcile(ctx, key, toTarget(result, m.OrderSize, m.EventTime))
}

// toTarget maps AdaptivePricer's output onto OrderReconciler's three-way
// target vocabulary.
func toTarget(result pricer.Result, size int, expiresAt time.Time) reconciler.Target {
	if result.Kind == pricer.KindBackOff {
		return reconciler.Target{Kind: reconciler.TargetBackOff}
	}
	return reconciler.Target{
		Kind:      reconciler.TargetPrice,
		Price:     result.Price,
		Size:      size,
		ExpiresAt: expiresAt,
	}
}

func bookSide(b types.Book, side types.Side) (best, second, bestQty int) {
	if side == types.SideYes {
		return b.BestYesBid, b.SecondYesBid, b.BestYesBidQty
	}
	return b.BestNoBid, b.SecondNoBid, b.BestNoBidQty
}

// stickyState reports whether this leg should hold at its current price
// (sticky) and whether a retest window has elapsed (forcing a drop to the
// next competitor). A retest resets the leg's clock.
func (w *World) stickyState(ms *matchState, leg types.Leg) (sticky, isRetest bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	last, ok := ms.lastDrop[leg]
	now := time.Now()
	if !ok || now.Sub(last) >= w.getCfg().StickyResetSecs {
		ms.lastDrop[leg] = now
		return true, true
	}
	return true, false
}

func (w *World) setRebalanceGauge(matchID, side string, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	rebalanceModeActive.WithLabelValues(matchID, side).Set(v)
}

func (w *World) cancelAllLegs(ctx context.Context, m types.Match) {
	for _, spec := range legSpecs(m) {
		key := types.OrderKey{MatchID: m.ID, Ticker: spec.ticker, Side: spec.side}
		w.reconciler.Reconcile(ctx, key, reconciler.Target{Kind: reconciler.TargetGated})
	}
}
