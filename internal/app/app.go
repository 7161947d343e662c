// Package app wires together the quoting engine's collaborators: the
// signer, exchange gateway, book cache, circuit breaker, order
// reconciler, inventory ledger, PnL journal, odds client and QuotingCore
// World, plus the operator HTTP server and health probe. Grounded on the
// teacher's internal/app/app.go composition-root shape, re-keyed from the
// Polymarket discovery/arbitrage/execution stack onto this domain's
// components.
package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/bookcache"
	"github.com/mselser95/quoter/internal/circuitbreaker"
	"github.com/mselser95/quoter/internal/exchange"
	"github.com/mselser95/quoter/internal/inventory"
	"github.com/mselser95/quoter/internal/odds"
	"github.com/mselser95/quoter/internal/pnl"
	"github.com/mselser95/quoter/internal/quoting"
	"github.com/mselser95/quoter/internal/reconciler"
	"github.com/mselser95/quoter/pkg/cache"
	"github.com/mselser95/quoter/pkg/config"
	"github.com/mselser95/quoter/pkg/healthprobe"
	"github.com/mselser95/quoter/pkg/httpserver"
	"github.com/mselser95/quoter/pkg/signer"
	"github.com/mselser95/quoter/pkg/types"
)

// Options carries process-level flags that aren't part of the
// environment-sourced Config (e.g. a debug dry-run mode that never
// reaches the exchange gateway).
type Options struct {
	DryRun bool
}

// App is the composition root: every collaborator the running process
// needs, built once in New and torn down once in Shutdown.
type App struct {
	cfg  *config.Config
	logger *zap.Logger
	opts Options

	signer  *signer.Signer
	gateway *exchange.Gateway
	stream  *exchange.Stream

	books   *bookcache.Cache
	breaker *circuitbreaker.GatewayCircuitBreaker
	recon   *reconciler.Reconciler
	ledger  *inventory.Ledger
	store   pnl.Store
	journal *pnl.Journal
	odds    *odds.Client
	world   *quoting.World

	marketCache cache.Cache

	httpServer    *httpserver.Server
	healthChecker *healthprobe.HealthChecker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	emergencyCancelOnce sync.Once
}

// New builds every collaborator but starts nothing; call Run to start the
// process and block until shutdown.
func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:           cfg,
		logger:        logger,
		opts:          opts,
		healthChecker: healthprobe.New(),
		ctx:           ctx,
		cancel:        cancel,
	}

	if err := a.setupSigner(); err != nil {
		cancel()
		return nil, fmt.Errorf("setup signer: %w", err)
	}
	a.setupGateway()
	if _, err := a.gateway.GetBalance(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("authenticate with exchange: %w", err)
	}
	if err := a.setupStream(); err != nil {
		cancel()
		return nil, fmt.Errorf("setup stream: %w", err)
	}
	a.setupBookCache()
	if err := a.setupCircuitBreaker(); err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}
	a.setupReconciler()
	a.setupLedger()
	if err := a.setupStore(); err != nil {
		cancel()
		return nil, fmt.Errorf("setup pnl store: %w", err)
	}
	a.setupOdds()
	if err := a.setupMarketCache(); err != nil {
		cancel()
		return nil, fmt.Errorf("setup market cache: %w", err)
	}
	a.setupWorld()
	a.setupHTTPServer()

	return a, nil
}

// AddMatch registers a new paired match: it fetches both legs' market
// metadata over REST (warming marketCache so a repeat add of an
// already-known ticker skips the round trip), subscribes the exchange
// stream to both tickers, and hands the match to QuotingCore's World in
// state New. This is the operator API's match-add path (spec §6 "POST
// /api/matches").
func (a *App) AddMatch(ctx context.Context, m types.Match) error {
	if m.Edge == 0 {
		m.Edge = a.world.Config().EdgeMin
	}
	for _, ticker := range []string{m.TickerA, m.TickerB} {
		if _, ok := a.marketCache.Get(ticker); ok {
			continue
		}
		meta, err := a.gateway.GetMarketMeta(ctx, ticker)
		if err != nil {
			return fmt.Errorf("fetch market metadata for %s: %w", ticker, err)
		}
		a.marketCache.Set(ticker, meta, 0)
	}

	if err := a.stream.Subscribe(m.TickerA, m.TickerB); err != nil {
		return fmt.Errorf("subscribe stream to %s/%s: %w", m.TickerA, m.TickerB, err)
	}

	a.world.AddMatch(ctx, m)
	return nil
}
