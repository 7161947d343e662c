package bookcache

import (
	"context"
	"testing"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T) *Cache {
	return New(&Config{Logger: zaptest.NewLogger(t)})
}

func TestApplySnapshot(t *testing.T) {
	c := newTestCache(t)

	c.ApplySnapshot(types.OrderbookSnapshot{
		Ticker: "MATCH-A",
		Yes:    []types.PriceLevel{{Price: 55, Qty: 10}, {Price: 50, Qty: 4}},
		No:     []types.PriceLevel{{Price: 40, Qty: 8}, {Price: 35, Qty: 2}},
	})

	book, err := c.Get(context.Background(), "MATCH-A")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if book.BestYesBid != 55 || book.SecondYesBid != 50 {
		t.Errorf("yes side = %+v, want best=55 second=50", book)
	}
	if book.BestNoBid != 40 || book.SecondNoBid != 35 {
		t.Errorf("no side = %+v, want best=40 second=35", book)
	}
	if book.YesAsk() != 60 {
		t.Errorf("YesAsk() = %d, want 60", book.YesAsk())
	}
}

// TestDeltaSequenceConvergesToFinalTopOfBook is invariant 8 from spec §8:
// for any sequence of book events whose final state equals S, the cached
// top-of-book equals the top of S.
func TestDeltaSequenceConvergesToFinalTopOfBook(t *testing.T) {
	c := newTestCache(t)

	c.ApplySnapshot(types.OrderbookSnapshot{
		Ticker: "MATCH-A",
		Yes:    []types.PriceLevel{{Price: 50, Qty: 10}},
		No:     []types.PriceLevel{{Price: 40, Qty: 10}},
	})

	// A new, better bid arrives.
	c.ApplyDelta(types.OrderbookDelta{Ticker: "MATCH-A", Side: types.SideYes, Price: 53, Qty: 6})
	// It is then withdrawn.
	c.ApplyDelta(types.OrderbookDelta{Ticker: "MATCH-A", Side: types.SideYes, Price: 53, Qty: 0})

	book, err := c.Get(context.Background(), "MATCH-A")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if book.BestYesBid != 50 {
		t.Errorf("after withdrawal, BestYesBid = %d, want 50 (falls back to prior best)", book.BestYesBid)
	}
}

type fakeFetcher struct {
	snap types.OrderbookSnapshot
	err  error
}

func (f fakeFetcher) FetchOrderbook(ctx context.Context, ticker string) (types.OrderbookSnapshot, error) {
	return f.snap, f.err
}

func TestGet_RESTFallbackWhenCold(t *testing.T) {
	fetcher := fakeFetcher{snap: types.OrderbookSnapshot{
		Ticker: "MATCH-B",
		Yes:    []types.PriceLevel{{Price: 33, Qty: 1}},
		No:     []types.PriceLevel{{Price: 60, Qty: 1}},
	}}
	c := New(&Config{Logger: zaptest.NewLogger(t), Fetcher: fetcher})

	book, err := c.Get(context.Background(), "MATCH-B")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if book.BestYesBid != 33 {
		t.Errorf("BestYesBid = %d, want 33 (from REST fallback)", book.BestYesBid)
	}

	// Subsequent call should now hit the warm cache, not the fetcher again.
	fetcher2 := fakeFetcher{err: context.DeadlineExceeded}
	c.fetcher = fetcher2
	if _, err := c.Get(context.Background(), "MATCH-B"); err != nil {
		t.Fatalf("Get (warm): %v", err)
	}
}
