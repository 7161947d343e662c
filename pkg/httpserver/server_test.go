package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/healthprobe"
	"github.com/mselser95/quoter/pkg/types"
)

func httpBodyReader(body string) io.Reader {
	return strings.NewReader(body)
}

// fakeBackend is a minimal in-memory Backend used to exercise the
// operator API's routing and request/response shapes without a real
// App composition root.
type fakeBackend struct {
	matches map[string]types.Match
	killed  bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{matches: make(map[string]types.Match)}
}

func (b *fakeBackend) AddMatch(_ context.Context, m types.Match) error {
	b.matches[m.ID] = m
	return nil
}

func (b *fakeBackend) AddMatches(ctx context.Context, reqs []types.AddMatchRequest) error {
	for _, r := range reqs {
		if err := b.AddMatch(ctx, types.Match{ID: r.ID, TickerA: r.TickerA, TickerB: r.TickerB}); err != nil {
			return err
		}
	}
	return nil
}

func (b *fakeBackend) StartMatch(_ context.Context, matchID string) error {
	m, ok := b.matches[matchID]
	if !ok {
		return errNotFound
	}
	m.State = types.MatchActive
	b.matches[matchID] = m
	return nil
}

func (b *fakeBackend) StopMatch(matchID string) error {
	m, ok := b.matches[matchID]
	if !ok {
		return errNotFound
	}
	m.State = types.MatchInactive
	b.matches[matchID] = m
	return nil
}

func (b *fakeBackend) StartAllMatches(_ context.Context) int {
	return len(b.matches)
}

func (b *fakeBackend) DeleteMatch(matchID string) error {
	if _, ok := b.matches[matchID]; !ok {
		return errNotFound
	}
	delete(b.matches, matchID)
	return nil
}

func (b *fakeBackend) DeleteAllMatches() {
	b.matches = make(map[string]types.Match)
}

func (b *fakeBackend) SetOdds(matchID string, _, _, _ float64) error {
	if _, ok := b.matches[matchID]; !ok {
		return errNotFound
	}
	return nil
}

func (b *fakeBackend) UpdateMatchSettings(matchID string, _ types.MatchSettingsRequest) error {
	if _, ok := b.matches[matchID]; !ok {
		return errNotFound
	}
	return nil
}

func (b *fakeBackend) RefreshOdds(_ context.Context, matchID string) error {
	if _, ok := b.matches[matchID]; !ok {
		return errNotFound
	}
	return nil
}

func (b *fakeBackend) UpdateSettings(_ types.Settings) error { return nil }

func (b *fakeBackend) Kill(_ context.Context) error {
	b.killed = true
	return nil
}

func (b *fakeBackend) SyncInventory(_ context.Context) error { return nil }

func (b *fakeBackend) GetMatchPnL(_ context.Context, matchID string) (types.PnL, error) {
	if _, ok := b.matches[matchID]; !ok {
		return types.PnL{}, errNotFound
	}
	return types.PnL{}, nil
}

func (b *fakeBackend) GetPnLSummary(_ context.Context, _ types.PeriodKind) ([]types.PeriodSummary, error) {
	return nil, nil
}

func (b *fakeBackend) RecordHedge(_ context.Context, _ types.Hedge) (int64, error) { return 1, nil }

func (b *fakeBackend) ListHedges(_ context.Context, _ string) ([]types.Hedge, error) { return nil, nil }

func (b *fakeBackend) SettleHedge(_ context.Context, _ int64, _ types.HedgeOutcome) error { return nil }

func (b *fakeBackend) DeleteHedge(_ context.Context, _ int64) error { return nil }

func (b *fakeBackend) Snapshot() []types.Match {
	out := make([]types.Match, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, m)
	}
	return out
}

func (b *fakeBackend) RestingOrders() []types.RestingOrder { return nil }

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

func newTestServer() (*Server, *fakeBackend) {
	backend := newFakeBackend()
	cfg := &Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		App:           backend,
	}
	return New(cfg), backend
}

func TestNew(t *testing.T) {
	server, backend := newTestServer()
	if server == nil {
		t.Fatal("New() returned nil server")
	}
	if server.server == nil {
		t.Error("New() server.server is nil")
	}
	if server.backend != backend {
		t.Error("New() backend not wired correctly")
	}
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		expectedStatus int
	}{
		{name: "ready_when_set", setReady: true, expectedStatus: http.StatusOK},
		{name: "not_ready_initially", setReady: false, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			if tt.setReady {
				hc.SetReady(true)
			}

			cfg := &Config{
				Port:          "0",
				Logger:        zap.NewNop(),
				HealthChecker: hc,
				App:           newFakeBackend(),
			}
			server := New(cfg)

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			w := httptest.NewRecorder()
			server.server.Handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Ready endpoint status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() == 0 {
		t.Error("Metrics endpoint returned empty body")
	}
}

func TestAddMatchAndStart(t *testing.T) {
	server, backend := newTestServer()

	body := `{"id":"m1","ticker_a":"A-TICK","ticker_b":"B-TICK","order_size":10,"inventory_cap":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/matches", httpBodyReader(body))
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("AddMatch status = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	if _, ok := backend.matches["m1"]; !ok {
		t.Fatal("match was not registered")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/matches/m1/start", nil)
	w = httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("StartMatch status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestStartMatch_NotFound(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/matches/missing/start", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("StartMatch(missing) status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeleteAllMatches(t *testing.T) {
	server, backend := newTestServer()
	backend.matches["m1"] = types.Match{ID: "m1"}
	backend.matches["m2"] = types.Match{ID: "m2"}

	req := httptest.NewRequest(http.MethodDelete, "/api/matches/all", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("DeleteAllMatches status = %d, want %d", w.Code, http.StatusOK)
	}
	if len(backend.matches) != 0 {
		t.Errorf("expected all matches deleted, got %d remaining", len(backend.matches))
	}
}

func TestKill(t *testing.T) {
	server, backend := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/kill", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Kill status = %d, want %d", w.Code, http.StatusOK)
	}
	if !backend.killed {
		t.Error("Kill did not reach the backend")
	}
}

func TestUpdateSettings_BelowFloor(t *testing.T) {
	// The fake backend never rejects settings (it has no floor logic of
	// its own); this exercises only the routing and JSON decode, not
	// config.CheckTunableFloors (that is unit-tested in pkg/config).
	server, _ := newTestServer()

	body := `{"check_interval":2,"sticky_reset_secs":5,"overbid_cancel_delay":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings", httpBodyReader(body))
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("UpdateSettings status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server, _ := newTestServer()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}

func TestServer_RouteNotFound(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	w := httptest.NewRecorder()
	server.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Non-existent route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestServer_Timeouts(t *testing.T) {
	server, _ := newTestServer()

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want %v", server.server.ReadTimeout, 15*time.Second)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want %v", server.server.WriteTimeout, 15*time.Second)
	}
}
