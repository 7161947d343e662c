package types

// Book is the cached top-of-book for one ticker: best and second-best bid
// on both the YES and NO side, with the best bid's resting quantity. The
// derived YES ask is 100 minus the best NO bid (the exchange has no
// separate ask book; a NO bid is economically a YES ask).
//
// Invariant: all prices lie in [0,99]; BestYesBid >= SecondYesBid and
// BestNoBid >= SecondNoBid.
type Book struct {
	BestYesBid    int
	BestYesBidQty int
	SecondYesBid  int
	BestNoBid     int
	BestNoBidQty  int
	SecondNoBid   int
}

// YesAsk derives the implied YES ask price from the NO bid ladder.
func (b Book) YesAsk() int {
	return 100 - b.BestNoBid
}

// NoAsk derives the implied NO ask price from the YES bid ladder.
func (b Book) NoAsk() int {
	return 100 - b.BestYesBid
}

// PriceLevel is one rung of an exchange-reported bid ladder, as returned
// by GET /markets/{ticker}/orderbook: {yes:[[price,qty],...], no:[...]}.
type PriceLevel struct {
	Price int
	Qty   int
}

// OrderbookSnapshot is a full-book replacement for one ticker.
type OrderbookSnapshot struct {
	Ticker string
	Yes    []PriceLevel
	No     []PriceLevel
}

// OrderbookDelta is an incremental change to one ticker's book: Price
// carries the new resting quantity at that level (0 removes the level).
type OrderbookDelta struct {
	Ticker string
	Side   Side
	Price  int
	Qty    int
}

// TopOfBook reduces a snapshot to the cached Book shape.
func TopOfBook(s OrderbookSnapshot) Book {
	var b Book
	if len(s.Yes) > 0 {
		b.BestYesBid = s.Yes[0].Price
		b.BestYesBidQty = s.Yes[0].Qty
	}
	if len(s.Yes) > 1 {
		b.SecondYesBid = s.Yes[1].Price
	}
	if len(s.No) > 0 {
		b.BestNoBid = s.No[0].Price
		b.BestNoBidQty = s.No[0].Qty
	}
	if len(s.No) > 1 {
		b.SecondNoBid = s.No[1].Price
	}
	return b
}
