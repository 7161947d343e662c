package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown runs the emergency-cancel pass exactly once (spec §7: "Shutdown
// on any termination path MUST run the emergency-cancel routine exactly
// once"), then tears down every collaborator in dependency order. Safe to
// call more than once; a prior Kill() shares the same one-shot guard.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	a.emergencyCancelOnce.Do(func() {
		if err := a.recon.EmergencyCancel(shutdownCtx); err != nil {
			a.logger.Error("emergency-cancel-error", zap.Error(err))
		}
	})

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}
	if err := a.recon.Close(); err != nil {
		a.logger.Error("reconciler-close-error", zap.Error(err))
	}
	if err := a.stream.Close(); err != nil {
		a.logger.Error("exchange-stream-close-error", zap.Error(err))
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Error("pnl-journal-close-error", zap.Error(err))
	}

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
