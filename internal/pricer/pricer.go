// Package pricer implements AdaptivePricer, the pure decision-table
// function that turns a theo price, a top-of-book snapshot, and our
// current resting price into a target price for one leg (spec §4.2).
package pricer

// Side selects which side of the book a price targets. QuotingCore only
// ever calls Decide with SideBid (the operator posts resting buys on all
// four legs, per spec §1); SideAsk is implemented as the exact mirror so
// the decision table has no side for which behavior is left undefined
// (spec §9 open question: the ask-side must_quote path must be defined
// explicitly, not inferred).
type Side int

const (
	SideBid Side = iota
	SideAsk
)

// Kind distinguishes a concrete price from the BACK_OFF sentinel.
type Kind int

const (
	KindPrice Kind = iota
	KindBackOff
)

// Result is AdaptivePricer's output: either a concrete price (Forced is
// set when it was produced by a must_quote override at the ceiling) or
// KindBackOff.
type Result struct {
	Kind   Kind
	Price  int
	Forced bool
}

// Input bundles AdaptivePricer's inputs for one leg.
type Input struct {
	Theo     int
	Best     int
	Second   int
	BestQty  int
	Current  *int // nil when we have no resting order on this leg
	OurSize  int
	EdgeMin  int
	Side     Side
	Sticky   bool
	IsRetest bool
	MustQuote bool
}

// Ceiling returns the maximum (bid) or minimum (ask) price that preserves
// EdgeMin cents of edge below/above theo.
func Ceiling(theo, edgeMin int, side Side) int {
	if side == SideBid {
		return theo - edgeMin
	}
	return theo + edgeMin + 1
}

// Decide runs the adaptive-pricing decision table for one leg.
func Decide(in Input) Result {
	ceiling := Ceiling(in.Theo, in.EdgeMin, in.Side)
	s := sign(in.Side)

	if in.Current != nil && *in.Current == in.Best {
		return decideTopOfBook(in, ceiling, s)
	}
	return decideCompetitorLeads(in, ceiling, s)
}

// decideTopOfBook handles the "current == best" branch: we are top of
// book, possibly tied with others at the same level.
func decideTopOfBook(in Input, ceiling, s int) Result {
	current := *in.Current

	if in.BestQty > in.OurSize {
		// Others are tied with us at this level. Reclaim priority while
		// there is still room below the ceiling.
		if below(current, ceiling, s) {
			return price(current + s)
		}
		return holdOrRetest(in, current, s)
	}

	return holdOrRetest(in, current, s)
}

// holdOrRetest implements stickiness: hold at the current price unless a
// retest is due, in which case drop to just above the next competitor.
func holdOrRetest(in Input, current, s int) Result {
	if in.Sticky && !in.IsRetest {
		return price(current)
	}
	dropped := in.Second + s
	return price(clampToward(dropped, boundary(in.Side), in.Side))
}

// decideCompetitorLeads handles "best > current" or no resting order: a
// competitor currently holds the best price (or there is no competitor
// and no order yet, in which case Best is still the price to beat).
func decideCompetitorLeads(in Input, ceiling, s int) Result {
	if beyond(in.Best, ceiling, s) {
		if in.MustQuote {
			return Result{Kind: KindPrice, Price: ceiling, Forced: true}
		}
		return Result{Kind: KindBackOff}
	}

	target := in.Best + s
	if beyond(target, ceiling, s) {
		target = ceiling
	}
	return price(target)
}

func price(p int) Result {
	return Result{Kind: KindPrice, Price: p}
}

// beyond reports whether a is past the ceiling in the direction that
// matters for side: strictly greater for bids, strictly less for asks.
func beyond(a, ceiling, s int) bool {
	return s*(a-ceiling) > 0
}

// below reports whether a still has room before the ceiling in the
// direction that matters for side: strictly less for bids, strictly
// greater for asks.
func below(a, ceiling, s int) bool {
	return s*(a-ceiling) < 0
}

func sign(side Side) int {
	if side == SideBid {
		return 1
	}
	return -1
}

// boundary is the absolute price floor (bid) or cap (ask) a dropped price
// may never cross.
func boundary(side Side) int {
	if side == SideBid {
		return 1
	}
	return 99
}

func clampToward(v, bound int, side Side) int {
	if side == SideBid {
		if v < bound {
			return bound
		}
		return v
	}
	if v > bound {
		return bound
	}
	return v
}
