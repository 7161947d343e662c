package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts every collaborator and blocks until a SIGINT/SIGTERM arrives
// or the app's context is cancelled, then shuts down.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("exchange-ws-url", a.cfg.ExchangeWSURL),
		zap.String("log-level", a.cfg.LogLevel))

	if err := a.startComponents(); err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready")

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	a.wg.Add(1)
	go a.runHTTPServer()

	if a.breaker != nil {
		a.breaker.Start(a.ctx)
	}

	if err := a.stream.Start(); err != nil {
		return fmt.Errorf("start exchange stream: %w", err)
	}

	a.wg.Add(1)
	go a.runWorld()

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// runWorld drives QuotingCore from the book cache's update channel and
// the exchange stream's decoded event channel (spec §5: "a task per
// stream reader, a tick task per active match").
func (a *App) runWorld() {
	defer a.wg.Done()
	a.world.Run(a.ctx, a.books.Updates(), a.stream.Events())
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
