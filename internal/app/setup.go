package app

import (
	"fmt"

	"github.com/mselser95/quoter/internal/bookcache"
	"github.com/mselser95/quoter/internal/circuitbreaker"
	"github.com/mselser95/quoter/internal/exchange"
	"github.com/mselser95/quoter/internal/inventory"
	"github.com/mselser95/quoter/internal/odds"
	"github.com/mselser95/quoter/internal/pnl"
	"github.com/mselser95/quoter/internal/quoting"
	"github.com/mselser95/quoter/internal/reconciler"
	"github.com/mselser95/quoter/pkg/cache"
	"github.com/mselser95/quoter/pkg/httpserver"
	"github.com/mselser95/quoter/pkg/signer"
)

func (a *App) setupSigner() error {
	if a.cfg.ExchangeKeyID == "" || a.cfg.ExchangePrivateKeyPath == "" {
		return fmt.Errorf("EXCHANGE_KEY_ID and EXCHANGE_PRIVATE_KEY_PATH are required")
	}
	s, err := signer.Load(a.cfg.ExchangeKeyID, a.cfg.ExchangePrivateKeyPath)
	if err != nil {
		return err
	}
	a.signer = s
	return nil
}

func (a *App) setupGateway() {
	a.gateway = exchange.New(exchange.Config{
		BaseURL: a.cfg.ExchangeBaseURL,
		Signer:  a.signer,
		Logger:  a.logger,
		Timeout: a.cfg.ExchangeRequestTimeout,
	})
}

func (a *App) setupStream() error {
	stream, err := exchange.NewStream(exchange.StreamConfig{
		WSURL:  a.cfg.ExchangeWSURL,
		Signer: a.signer,
		Logger: a.logger,
		// The hook only logs: BookCache entries are not cleared on
		// reconnect and keep their last values until new snapshots or
		// deltas for those tickers arrive.
		OnReset: func() {
			a.logger.Warn("exchange-stream-reset-book-cache-invalidated")
		},
	})
	if err != nil {
		return err
	}
	a.stream = stream
	return nil
}

func (a *App) setupBookCache() {
	a.books = bookcache.New(&bookcache.Config{
		Logger:  a.logger,
		Fetcher: a.gateway,
	})
}

func (a *App) setupCircuitBreaker() error {
	if !a.cfg.CircuitBreakerEnabled {
		a.breaker = nil
		return nil
	}
	b, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:    a.cfg.CircuitBreakerCheckInterval,
		WindowSize:       a.cfg.CircuitBreakerWindowSize,
		DisableErrorRate: a.cfg.CircuitBreakerDisableErrorRate,
		HysteresisRatio:  a.cfg.CircuitBreakerHysteresisRatio,
		Logger:           a.logger,
	})
	if err != nil {
		return err
	}
	a.breaker = b
	return nil
}

func (a *App) setupReconciler() {
	var breaker reconciler.Breaker
	if a.breaker != nil {
		breaker = a.breaker
	}

	var gw reconciler.Gateway = a.gateway
	if a.opts.DryRun {
		gw = newDryRunGateway(a.gateway, a.logger)
	}

	a.recon = reconciler.New(&reconciler.Config{
		Gateway:            gw,
		Breaker:            breaker,
		Logger:             a.logger,
		OverbidCancelDelay: a.cfg.OverbidCancelDelay,
		MaxConcurrency:     a.cfg.ReconcilerMaxConcurrency,
	})
}

func (a *App) setupLedger() {
	a.ledger = inventory.New(a.logger)
}

func (a *App) setupStore() error {
	switch a.cfg.StorageMode {
	case "postgres":
		store, err := pnl.NewPostgresStore(&pnl.PostgresConfig{
			Host:     a.cfg.PostgresHost,
			Port:     a.cfg.PostgresPort,
			User:     a.cfg.PostgresUser,
			Password: a.cfg.PostgresPass,
			Database: a.cfg.PostgresDB,
			SSLMode:  a.cfg.PostgresSSL,
			Logger:   a.logger,
		})
		if err != nil {
			return err
		}
		a.store = store
	default:
		a.store = pnl.NewMemoryStore(a.logger)
	}
	a.journal = pnl.New(a.store, a.logger)
	return nil
}

func (a *App) setupOdds() {
	a.odds = odds.New(odds.Config{
		BaseURL: a.cfg.OddsProviderBaseURL,
		APIKey:  a.cfg.OddsProviderAPIKey,
		Logger:  a.logger,
		Timeout: a.cfg.OddsRequestTimeout,
	})
}

func (a *App) setupMarketCache() error {
	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: a.cfg.CacheNumCounters,
		MaxCost:     a.cfg.CacheMaxCost,
		BufferItems: a.cfg.CacheBufferItems,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("new market metadata cache: %w", err)
	}
	a.marketCache = c
	return nil
}

func (a *App) setupWorld() {
	a.world = quoting.NewWorld(quoting.Config{
		EdgeMin:            a.cfg.EdgeMin,
		FeeBuffer:          a.cfg.RebalanceFeeBuffer,
		CheckInterval:      a.cfg.CheckInterval,
		StickyResetSecs:    a.cfg.StickyResetSecs,
		OverbidCancelDelay: a.cfg.OverbidCancelDelay,
	}, a.books, a.recon, a.ledger, a.journal, a.logger)
}

func (a *App) setupHTTPServer() {
	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          a.cfg.HTTPPort,
		Logger:        a.logger,
		HealthChecker: a.healthChecker,
		App:           a,
	})
}

