package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/internal/theo"
	"github.com/mselser95/quoter/pkg/types"
)

// ErrorResponse is the JSON body every failed operator API call returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("http-encode-response-failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// matchPayload is the JSON wire shape for one match in "POST /api/matches"
// and "POST /api/matches/batch" (spec §6).
type matchPayload struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	Category     string    `json:"category"`
	TickerA      string    `json:"ticker_a"`
	TickerB      string    `json:"ticker_b"`
	OddsEventID  string    `json:"odds_event_id"`
	TeamAName    string    `json:"team_a_name"`
	TeamBName    string    `json:"team_b_name"`
	DrawName     string    `json:"draw_name"`
	OddsA        float64   `json:"odds_a"`
	OddsB        float64   `json:"odds_b"`
	OddsDraw     float64   `json:"odds_draw"`
	OrderSize    int       `json:"order_size"`
	InventoryCap int       `json:"inventory_cap"`
	EventTime    time.Time `json:"event_time"`
	MarketURL    string    `json:"market_url"`
}

func (p matchPayload) toRequest() types.AddMatchRequest {
	return types.AddMatchRequest{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		Category:     p.Category,
		TickerA:      p.TickerA,
		TickerB:      p.TickerB,
		OddsEventID:  p.OddsEventID,
		TeamAName:    p.TeamAName,
		TeamBName:    p.TeamBName,
		DrawName:     p.DrawName,
		OddsA:        p.OddsA,
		OddsB:        p.OddsB,
		OddsDraw:     p.OddsDraw,
		OrderSize:    p.OrderSize,
		InventoryCap: p.InventoryCap,
		EventTime:    p.EventTime,
		MarketURL:    p.MarketURL,
	}
}

func matchFromRequest(r types.AddMatchRequest) types.Match {
	theoA, theoB := theoFromOdds(r.OddsA, r.OddsB, r.OddsDraw)
	return types.Match{
		ID:           r.ID,
		DisplayName:  r.DisplayName,
		Category:     r.Category,
		TickerA:      r.TickerA,
		TickerB:      r.TickerB,
		OddsEventID:  r.OddsEventID,
		TeamAName:    r.TeamAName,
		TeamBName:    r.TeamBName,
		DrawName:     r.DrawName,
		OddsA:        r.OddsA,
		OddsB:        r.OddsB,
		TheoA:        theoA,
		TheoB:        theoB,
		OrderSize:    r.OrderSize,
		InventoryCap: r.InventoryCap,
		EventTime:    r.EventTime,
		MarketURL:    r.MarketURL,
	}
}

func theoFromOdds(oddsA, oddsB, oddsDraw float64) (int, int) {
	if oddsDraw > 0 {
		return theo.ThreeWay(oddsA, oddsB, oddsDraw)
	}
	return theo.TwoWay(oddsA, oddsB)
}

// handleAddMatch implements "POST /api/matches".
func (s *Server) handleAddMatch(w http.ResponseWriter, r *http.Request) {
	var p matchPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.backend.AddMatch(r.Context(), matchFromRequest(p.toRequest())); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, nil)
}

// handleAddMatchBatch implements "POST /api/matches/batch".
func (s *Server) handleAddMatchBatch(w http.ResponseWriter, r *http.Request) {
	var payloads []matchPayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	reqs := make([]types.AddMatchRequest, 0, len(payloads))
	for _, p := range payloads {
		reqs = append(reqs, p.toRequest())
	}
	if err := s.backend.AddMatches(r.Context(), reqs); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, nil)
}

// handleStartAllMatches implements "POST /api/matches/start-all".
func (s *Server) handleStartAllMatches(w http.ResponseWriter, r *http.Request) {
	started := s.backend.StartAllMatches(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]int{"started": started})
}

// handleStartMatch implements "POST /api/matches/{id}/start".
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.StartMatch(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleStopMatch implements "POST /api/matches/{id}/stop".
func (s *Server) handleStopMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.StopMatch(id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

type oddsPayload struct {
	OddsA    float64 `json:"odds_a"`
	OddsB    float64 `json:"odds_b"`
	OddsDraw float64 `json:"odds_draw"`
}

// handleSetOdds implements "POST /api/matches/{id}/odds".
func (s *Server) handleSetOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p oddsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.backend.SetOdds(id, p.OddsA, p.OddsB, p.OddsDraw); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleRefreshOdds implements "POST /api/matches/{id}/refresh-odds"
// (spec §7: odds-refresh failure surfaces {error:...}, stored odds kept).
func (s *Server) handleRefreshOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.RefreshOdds(r.Context(), id); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// matchSettingsPayload is the partial per-match update for "POST
// /api/matches/{id}/settings" (spec §6). Absent fields are left unchanged.
type matchSettingsPayload struct {
	Edge         *int       `json:"edge"`
	OrderSize    *int       `json:"order_size"`
	InventoryCap *int       `json:"inventory_cap"`
	EventTime    *time.Time `json:"event_time"`
}

// handleUpdateMatchSettings implements "POST /api/matches/{id}/settings".
func (s *Server) handleUpdateMatchSettings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p matchSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.backend.UpdateMatchSettings(id, types.MatchSettingsRequest{
		Edge:         p.Edge,
		OrderSize:    p.OrderSize,
		InventoryCap: p.InventoryCap,
		EventTime:    p.EventTime,
	})
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleDeleteMatch implements "DELETE /api/matches/{id}".
func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.backend.DeleteMatch(id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleDeleteAllMatches implements "DELETE /api/matches/all".
func (s *Server) handleDeleteAllMatches(w http.ResponseWriter, r *http.Request) {
	s.backend.DeleteAllMatches()
	s.writeJSON(w, http.StatusOK, nil)
}

// settingsPayload expresses durations in seconds over the wire, checked
// against the floors config.CheckTunableFloors enforces (spec §6).
type settingsPayload struct {
	CheckIntervalSecs      float64 `json:"check_interval"`
	StickyResetSecs        float64 `json:"sticky_reset_secs"`
	OverbidCancelDelaySecs float64 `json:"overbid_cancel_delay"`
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// handleUpdateSettings implements "POST /api/settings".
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	settings := types.Settings{
		CheckInterval:      secondsToDuration(p.CheckIntervalSecs),
		StickyResetSecs:    secondsToDuration(p.StickyResetSecs),
		OverbidCancelDelay: secondsToDuration(p.OverbidCancelDelaySecs),
	}
	if err := s.backend.UpdateSettings(settings); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleKill implements "POST /api/kill": the emergency-cancel pass.
func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Kill(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleSyncInventory implements "POST /api/sync-inventory".
func (s *Server) handleSyncInventory(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.SyncInventory(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleMatchPnL implements "GET /api/pnl/match/{id}".
func (s *Server) handleMatchPnL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pnl, err := s.backend.GetMatchPnL(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pnl)
}

// handlePnLSummary implements "GET /api/pnl/summary?period=...".
func (s *Server) handlePnLSummary(w http.ResponseWriter, r *http.Request) {
	period := types.PeriodKind(r.URL.Query().Get("period"))
	if period == "" {
		period = types.PeriodDaily
	}
	summary, err := s.backend.GetPnLSummary(r.Context(), period)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type hedgePayload struct {
	MatchID   string  `json:"match_id"`
	Platform  string  `json:"platform"`
	Side      string  `json:"side"`
	AmountUSD float64 `json:"amount_usd"`
	Odds      float64 `json:"odds"`
}

// handleCreateHedge implements "POST /api/hedges".
func (s *Server) handleCreateHedge(w http.ResponseWriter, r *http.Request) {
	var p hedgePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.backend.RecordHedge(r.Context(), types.Hedge{
		MatchID:   p.MatchID,
		Platform:  p.Platform,
		Side:      p.Side,
		AmountUSD: p.AmountUSD,
		Odds:      p.Odds,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleListHedges implements "GET /api/hedges?match_id=...".
func (s *Server) handleListHedges(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("match_id")
	hedges, err := s.backend.ListHedges(r.Context(), matchID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hedges)
}

type hedgeOutcomePayload struct {
	Outcome types.HedgeOutcome `json:"outcome"`
}

// handleSettleHedge implements "PUT /api/hedges/{id}".
func (s *Server) handleSettleHedge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	var p hedgeOutcomePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.backend.SettleHedge(r.Context(), id, p.Outcome); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

// handleDeleteHedge implements "DELETE /api/hedges/{id}".
func (s *Server) handleDeleteHedge(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.backend.DeleteHedge(r.Context(), id); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}
