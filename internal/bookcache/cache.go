// Package bookcache maintains current top-of-book (spec's BookCache,
// spec §2 item 2) per subscribed ticker, fed by the exchange's snapshot
// and delta stream, falling back to a REST snapshot fetch when cold.
package bookcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// restRefreshTimeout bounds the background re-fetch triggered when a delta
// removes a best-level quote and leaves the promoted second level's real
// quantity unknown.
const restRefreshTimeout = 5 * time.Second

// RESTFetcher fetches a full orderbook snapshot over REST, used when the
// cache has no entry yet for a ticker.
type RESTFetcher interface {
	FetchOrderbook(ctx context.Context, ticker string) (types.OrderbookSnapshot, error)
}

// Update is published on the notification channel whenever a ticker's
// cached book changes.
type Update struct {
	Ticker string
	Book   types.Book
}

// Cache is the per-ticker top-of-book store. The book cache is
// writer-single (the stream reader applies snapshots/deltas) and
// reader-many (QuotingCore takes short local snapshots); see spec §5.
type Cache struct {
	books   map[string]types.Book
	mu      sync.RWMutex
	logger  *zap.Logger
	fetcher RESTFetcher
	updates chan Update
}

// Config configures a Cache.
type Config struct {
	Logger  *zap.Logger
	Fetcher RESTFetcher
}

// New creates a Cache.
func New(cfg *Config) *Cache {
	return &Cache{
		books:   make(map[string]types.Book),
		logger:  cfg.Logger,
		fetcher: cfg.Fetcher,
		updates: make(chan Update, 10000),
	}
}

// ApplySnapshot replaces the cached book for a ticker with a full
// snapshot. Snapshots and deltas for the same ticker must be applied in
// receipt order (spec §5); callers are responsible for that ordering.
func (c *Cache) ApplySnapshot(snap types.OrderbookSnapshot) {
	book := types.TopOfBook(snap)

	c.mu.Lock()
	c.books[snap.Ticker] = book
	TickersTracked.Set(float64(len(c.books)))
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues("snapshot").Inc()
	c.publish(Update{Ticker: snap.Ticker, Book: book})
}

// ApplyDelta applies an incremental price-level change to a ticker's
// cached book. If the ticker is not yet cached, the delta is dropped
// (the next snapshot, or an explicit REST fallback, will establish it).
func (c *Cache) ApplyDelta(delta types.OrderbookDelta) {
	c.mu.Lock()
	book, ok := c.books[delta.Ticker]
	if !ok {
		c.mu.Unlock()
		c.logger.Debug("delta-for-uncached-ticker", zap.String("ticker", delta.Ticker))
		return
	}

	topRemoved := applyDeltaToBook(&book, delta)
	c.books[delta.Ticker] = book
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues("delta").Inc()
	c.publish(Update{Ticker: delta.Ticker, Book: book})

	if topRemoved {
		// The promoted second level's real quantity is unknown (Book only
		// tracks the top two), which would otherwise leave the pricer's
		// tie-detection reading a bogus zero until the next snapshot.
		c.refreshAsync(delta.Ticker)
	}
}

// applyDeltaToBook applies one price-level delta to b and reports whether
// the best level on that side was removed (qty dropped to zero at the top
// of book), promoting the second level in its place.
func applyDeltaToBook(b *types.Book, d types.OrderbookDelta) (topRemoved bool) {
	if d.Side == types.SideYes {
		if d.Qty == 0 && d.Price == b.BestYesBid {
			b.BestYesBid = b.SecondYesBid
			b.BestYesBidQty = 0
			b.SecondYesBid = 0
			return true
		}
		if d.Price > b.BestYesBid {
			b.SecondYesBid = b.BestYesBid
			b.BestYesBid = d.Price
			b.BestYesBidQty = d.Qty
			return false
		}
		if d.Price == b.BestYesBid {
			b.BestYesBidQty = d.Qty
			return false
		}
		if d.Price > b.SecondYesBid {
			b.SecondYesBid = d.Price
		}
		return false
	}

	if d.Qty == 0 && d.Price == b.BestNoBid {
		b.BestNoBid = b.SecondNoBid
		b.BestNoBidQty = 0
		b.SecondNoBid = 0
		return true
	}
	if d.Price > b.BestNoBid {
		b.SecondNoBid = b.BestNoBid
		b.BestNoBid = d.Price
		b.BestNoBidQty = d.Qty
		return false
	}
	if d.Price == b.BestNoBid {
		b.BestNoBidQty = d.Qty
		return false
	}
	if d.Price > b.SecondNoBid {
		b.SecondNoBid = d.Price
	}
	return false
}

// refreshAsync re-fetches a ticker's full orderbook over REST and applies
// it as a snapshot, correcting a promoted level's quantity after a
// top-of-book removal. A no-op if no REST fallback is configured.
func (c *Cache) refreshAsync(ticker string) {
	if c.fetcher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), restRefreshTimeout)
		defer cancel()

		snap, err := c.fetcher.FetchOrderbook(ctx, ticker)
		if err != nil {
			c.logger.Warn("book-refresh-after-top-level-removal-failed",
				zap.String("ticker", ticker), zap.Error(err))
			return
		}
		c.ApplySnapshot(snap)
	}()
}

func (c *Cache) publish(u Update) {
	select {
	case c.updates <- u:
	default:
		c.logger.Warn("book-update-channel-full-dropping",
			zap.String("ticker", u.Ticker))
		UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// Updates returns the channel QuotingCore listens on for book changes.
func (c *Cache) Updates() <-chan Update {
	return c.updates
}

// Get returns the cached book for a ticker, falling back to a REST
// snapshot fetch when the cache is cold.
func (c *Cache) Get(ctx context.Context, ticker string) (types.Book, error) {
	c.mu.RLock()
	book, ok := c.books[ticker]
	c.mu.RUnlock()
	if ok {
		return book, nil
	}

	if c.fetcher == nil {
		return types.Book{}, fmt.Errorf("book cache cold for %s and no REST fallback configured", ticker)
	}

	RESTFallbackTotal.Inc()
	snap, err := c.fetcher.FetchOrderbook(ctx, ticker)
	if err != nil {
		return types.Book{}, fmt.Errorf("rest fallback fetch orderbook %s: %w", ticker, err)
	}

	c.ApplySnapshot(snap)
	return types.TopOfBook(snap), nil
}

// Snapshot returns a defensive copy of every cached book, for operator
// diagnostics.
func (c *Cache) Snapshot() map[string]types.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]types.Book, len(c.books))
	for k, v := range c.books {
		out[k] = v
	}
	return out
}
