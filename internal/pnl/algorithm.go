package pnl

import (
	"fmt"
	"sort"
	"time"

	"github.com/mselser95/quoter/pkg/types"
)

// MidPriceFunc returns the current mid price (cents) for a ticker, used
// to mark open positions to market when no settlement result exists yet.
type MidPriceFunc func(ticker string) (int, bool)

// classifiedFill is a fill tagged with its pairing side and period key.
type classifiedFill struct {
	price, count, fee int
	periodKey         string
	createdTime       time.Time
}

// classify partitions a match's fills into long-A (A-YES or B-NO
// purchases) and long-B (B-YES or A-NO purchases), preserving
// chronological order, per spec §4.6.
func classify(match types.PnLMatch, fills []types.Fill, period types.PeriodKind) (longA, longB []classifiedFill, totalFees int) {
	sorted := make([]types.Fill, len(fills))
	copy(sorted, fills)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedTime.Before(sorted[j].CreatedTime) })

	for _, f := range sorted {
		totalFees += f.Fee
		entry := classifiedFill{
			price:       f.Price,
			count:       f.Count,
			fee:         f.Fee,
			periodKey:   PeriodKey(f.CreatedTime, period),
			createdTime: f.CreatedTime,
		}
		if (f.Ticker == match.TickerA && f.Side == types.SideYes) ||
			(f.Ticker == match.TickerB && f.Side == types.SideNo) {
			longA = append(longA, entry)
		} else {
			longB = append(longB, entry)
		}
	}
	return longA, longB, totalFees
}

// fifoPairedCost consumes up to `pairs` contracts FIFO from fills and
// returns their total cost.
func fifoPairedCost(fills []classifiedFill, pairs int) int {
	cost := 0
	remaining := pairs
	for _, f := range fills {
		if remaining == 0 {
			break
		}
		take := f.count
		if take > remaining {
			take = remaining
		}
		cost += take * f.price
		remaining -= take
	}
	return cost
}

// fifoLeftoverCost skips the first `pairs` contracts FIFO and returns the
// cost of what remains, i.e. the unpaired tail.
func fifoLeftoverCost(fills []classifiedFill, pairs int) int {
	cost := 0
	skip := pairs
	for _, f := range fills {
		if skip >= f.count {
			skip -= f.count
			continue
		}
		take := f.count - skip
		cost += take * f.price
		skip = 0
	}
	return cost
}

func totalCount(fills []classifiedFill) int {
	sum := 0
	for _, f := range fills {
		sum += f.count
	}
	return sum
}

func hedgePnL(hedges []types.Hedge) float64 {
	var h float64
	for _, hedge := range hedges {
		if hedge.Outcome == nil {
			continue
		}
		switch *hedge.Outcome {
		case types.HedgeWin:
			h += hedge.AmountUSD * (hedge.Odds - 1)
		case types.HedgeLoss:
			h -= hedge.AmountUSD
		}
	}
	return h
}

// ComputeMatchPnL computes the arb/EV/AV/hedge/fee decomposition for one
// match (spec §4.6's P&L algorithm, resolved in detail against the
// surveyed pnl_db.py before it was removed from the reference pack — see
// DESIGN.md). theoA/theoB override the match's stored theo when non-nil;
// getMidPrice, if supplied, marks open leftover positions to market.
func ComputeMatchPnL(match types.PnLMatch, fills []types.Fill, hedges []types.Hedge, theoA, theoB *int, getMidPrice MidPriceFunc) types.PnL {
	longA, longB, totalFees := classify(match, fills, types.PeriodDaily)

	ta := resolveTheo(theoA, match.TheoA)
	tb := resolveTheo(theoB, match.TheoB)

	totalA := totalCount(longA)
	totalB := totalCount(longB)
	pairs := min(totalA, totalB)

	costAPaired := fifoPairedCost(longA, pairs)
	costBPaired := fifoPairedCost(longB, pairs)
	arb := 100*pairs - costAPaired - costBPaired

	leftoverA := totalA - pairs
	leftoverB := totalB - pairs
	leftoverCostA := fifoLeftoverCost(longA, pairs)
	leftoverCostB := fifoLeftoverCost(longB, pairs)

	ev := (ta*leftoverA - leftoverCostA) + (tb*leftoverB - leftoverCostB)

	settled := match.ResultA != nil
	var av int
	switch {
	case settled:
		var payoutA, payoutB int
		if *match.ResultA == "yes" {
			payoutA = 100 * leftoverA
		} else {
			payoutB = 100 * leftoverB
		}
		av = (payoutA - leftoverCostA) + (payoutB - leftoverCostB)
	case getMidPrice != nil && (leftoverA > 0 || leftoverB > 0):
		midA, _ := getMidPrice(match.TickerA)
		midB, _ := getMidPrice(match.TickerB)
		if leftoverA == 0 {
			midA = 0
		}
		if leftoverB == 0 {
			midB = 0
		}
		av = (midA*leftoverA - leftoverCostA) + (midB*leftoverB - leftoverCostB)
	default:
		av = 0
	}

	delta := av - ev
	hedge := hedgePnL(hedges)
	pnlUSD := float64(arb)/100 + float64(av)/100 + hedge - float64(totalFees)/100

	return types.PnL{
		Settled:    settled,
		ArbCents:   arb,
		EVCents:    ev,
		AVCents:    av,
		DeltaCents: delta,
		HedgeUSD:   hedge,
		FeesCents:  totalFees,
		PnLUSD:     pnlUSD,
		Pairs:      pairs,
		LeftoverA:  leftoverA,
		LeftoverB:  leftoverB,
	}
}

func resolveTheo(override, stored *int) int {
	if override != nil {
		return *override
	}
	if stored != nil {
		return *stored
	}
	return 50
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PeriodKey buckets a timestamp into the given granularity: daily
// (YYYY-MM-DD), weekly (YYYY-Www, ISO week), or monthly (YYYY-MM).
func PeriodKey(t time.Time, period types.PeriodKind) string {
	switch period {
	case types.PeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case types.PeriodMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

type periodAccum struct {
	arb, ev, av, fees int
	hedge             float64
}

// ComputeSummary aggregates P&L by period across every match, crediting
// arb to the period in which the SECOND leg of each pair completes, and
// ev/av/fees to each individual fill's own period — the exact bucketing
// rule surveyed from pnl_db.py's get_pnl_summary before that file was
// removed from the reference pack (see DESIGN.md).
func ComputeSummary(matches []types.PnLMatch, fillsByMatch map[string][]types.Fill, hedgesByMatch map[string][]types.Hedge, period types.PeriodKind, getMidPrice MidPriceFunc) []types.PeriodSummary {
	periods := make(map[string]*periodAccum)
	accum := func(key string) *periodAccum {
		a, ok := periods[key]
		if !ok {
			a = &periodAccum{}
			periods[key] = a
		}
		return a
	}

	for _, m := range matches {
		fills := fillsByMatch[m.ID]
		if len(fills) == 0 {
			continue
		}
		longA, longB, _ := classify(m, fills, period)

		var midA, midB int
		if m.ResultA == nil && getMidPrice != nil {
			midA, _ = getMidPrice(m.TickerA)
			midB, _ = getMidPrice(m.TickerB)
		}

		ta := resolveTheo(nil, m.TheoA)
		tb := resolveTheo(nil, m.TheoB)

		pairs := min(totalCount(longA), totalCount(longB))
		walkPairs(longA, longB, accum)
		processLeftover(longA, pairs, ta, midA, m.ResultA, true, accum)
		processLeftover(longB, pairs, tb, midB, m.ResultA, false, accum)

		hedges := hedgesByMatch[m.ID]
		if len(hedges) > 0 {
			key := PeriodKey(fills[0].CreatedTime, period)
			accum(key).hedge += hedgePnL(hedges)
		}
	}

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]types.PeriodSummary, 0, len(keys))
	for _, k := range keys {
		a := periods[k]
		arb := float64(a.arb) / 100
		ev := float64(a.ev) / 100
		av := float64(a.av) / 100
		fees := float64(a.fees) / 100
		out = append(out, types.PeriodSummary{
			Period:   k,
			ArbUSD:   arb,
			EVUSD:    ev,
			AVUSD:    av,
			DeltaUSD: av - ev,
			HedgeUSD: a.hedge,
			FeesUSD:  fees,
			PnLUSD:   arb + av + a.hedge - fees,
		})
	}
	return out
}

// walkPairs replays the FIFO pairing walk across both queues, crediting
// each closed pair's arb to the later of the two legs' period keys (the
// period in which the pair actually completed).
func walkPairs(longA, longB []classifiedFill, accum func(string) *periodAccum) {
	ia, ib := 0, 0
	var remA, remB int
	if len(longA) > 0 {
		remA = longA[0].count
	}
	if len(longB) > 0 {
		remB = longB[0].count
	}

	for ia < len(longA) && ib < len(longB) {
		keyA := longA[ia].periodKey
		keyB := longB[ib].periodKey
		priceA := longA[ia].price
		priceB := longB[ib].price

		pairCount := min(remA, remB)
		arbProfit := (100 - priceA - priceB) * pairCount

		arbKey := keyA
		if keyB > keyA {
			arbKey = keyB
		}
		accum(arbKey).arb += arbProfit

		remA -= pairCount
		remB -= pairCount

		if remA == 0 {
			ia++
			if ia < len(longA) {
				remA = longA[ia].count
			}
		}
		if remB == 0 {
			ib++
			if ib < len(longB) {
				remB = longB[ib].count
			}
		}
	}
}

// processLeftover credits ev/av/fees for the unpaired tail of one side's
// fills to each fill's own period, skipping the `pairs` contracts already
// consumed FIFO by the pairing walk.
func processLeftover(fills []classifiedFill, pairs, theo, midPrice int, resultA *string, isASide bool, accum func(string) *periodAccum) {
	skip := pairs

	for _, f := range fills {
		accum(f.periodKey).fees += f.fee

		if skip >= f.count {
			skip -= f.count
			continue
		}
		leftover := f.count - skip
		skip = 0

		ev := (theo - f.price) * leftover
		accum(f.periodKey).ev += ev

		var av int
		switch {
		case resultA != nil:
			won := (isASide && *resultA == "yes") || (!isASide && *resultA == "no")
			payout := 0
			if won {
				payout = 100 * leftover
			}
			av = payout - f.price*leftover
		case midPrice != 0:
			av = midPrice*leftover - f.price*leftover
		default:
			av = 0
		}
		accum(f.periodKey).av += av
	}
}

