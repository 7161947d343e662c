// Package httpserver implements the operator API (spec §6 "Operator
// API"): match CRUD, global settings, kill/sync-inventory, P&L queries,
// hedge CRUD, and a dashboard push channel, mounted on a chi router
// alongside /metrics and /health/ready. Grounded on the teacher's
// pkg/httpserver/server.go router/middleware shape.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/healthprobe"
	"github.com/mselser95/quoter/pkg/types"
)

// Backend is everything the operator API drives. internal/app.App
// implements it; defining the interface here (rather than importing
// *app.App directly) keeps this package free to be tested against a fake,
// and avoids an import cycle since internal/app depends on this package to
// serve the operator API.
type Backend interface {
	AddMatch(ctx context.Context, m types.Match) error
	AddMatches(ctx context.Context, reqs []types.AddMatchRequest) error
	StartMatch(ctx context.Context, matchID string) error
	StopMatch(matchID string) error
	StartAllMatches(ctx context.Context) int
	DeleteMatch(matchID string) error
	DeleteAllMatches()
	SetOdds(matchID string, oddsA, oddsB, oddsDraw float64) error
	UpdateMatchSettings(matchID string, s types.MatchSettingsRequest) error
	RefreshOdds(ctx context.Context, matchID string) error
	UpdateSettings(s types.Settings) error
	Kill(ctx context.Context) error
	SyncInventory(ctx context.Context) error
	GetMatchPnL(ctx context.Context, matchID string) (types.PnL, error)
	GetPnLSummary(ctx context.Context, period types.PeriodKind) ([]types.PeriodSummary, error)
	RecordHedge(ctx context.Context, h types.Hedge) (int64, error)
	ListHedges(ctx context.Context, matchID string) ([]types.Hedge, error)
	SettleHedge(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) error
	DeleteHedge(ctx context.Context, hedgeID int64) error
	Snapshot() []types.Match
	RestingOrders() []types.RestingOrder
}

// Server serves the operator API, metrics, and health endpoints.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	backend       Backend
	hub           *snapshotHub
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	App           Backend
}

// New creates a new HTTP server with the full operator API mounted.
func New(cfg *Config) *Server {
	s := &Server{
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
		backend:       cfg.App,
		hub:           newSnapshotHub(cfg.Logger, cfg.App),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	r.Route("/api", func(r chi.Router) {
		r.Post("/matches", s.handleAddMatch)
		r.Post("/matches/batch", s.handleAddMatchBatch)
		r.Post("/matches/start-all", s.handleStartAllMatches)
		r.Post("/matches/{id}/start", s.handleStartMatch)
		r.Post("/matches/{id}/stop", s.handleStopMatch)
		r.Post("/matches/{id}/odds", s.handleSetOdds)
		r.Post("/matches/{id}/settings", s.handleUpdateMatchSettings)
		r.Post("/matches/{id}/refresh-odds", s.handleRefreshOdds)
		r.Delete("/matches/{id}", s.handleDeleteMatch)
		r.Delete("/matches/all", s.handleDeleteAllMatches)

		r.Post("/settings", s.handleUpdateSettings)

		r.Post("/kill", s.handleKill)
		r.Post("/sync-inventory", s.handleSyncInventory)

		r.Get("/pnl/match/{id}", s.handleMatchPnL)
		r.Get("/pnl/summary", s.handlePnLSummary)

		r.Post("/hedges", s.handleCreateHedge)
		r.Get("/hedges", s.handleListHedges)
		r.Put("/hedges/{id}", s.handleSettleHedge)
		r.Delete("/hedges/{id}", s.handleDeleteHedge)

		r.Get("/stream", s.hub.handleWS)
	})

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server and the snapshot push loop. This is a
// blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))
	go s.hub.run()

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server and stops the snapshot hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")
	s.hub.stop()

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
