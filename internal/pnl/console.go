package pnl

import (
	"context"
	"fmt"
	"sync"

	"github.com/mselser95/quoter/pkg/types"
	"go.uber.org/zap"
)

// MemoryStore is the no-database Store fallback, selected by
// cfg.StorageMode == "memory" (the default).
// Unlike ConsoleStorage's pure pretty-printing, CalculateMatchPnL still
// needs real data to query in dry-run/no-DB operation, so this holds
// state in memory and logs each write the way ConsoleStorage logs each
// opportunity.
type MemoryStore struct {
	mu      sync.RWMutex
	logger  *zap.Logger
	matches map[string]types.PnLMatch
	fills   map[string]types.Fill // keyed by fill_id, for idempotency
	hedges  map[string]types.Hedge
	nextID  int64
}

// NewMemoryStore creates an empty in-memory Store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	logger.Info("pnl-memory-store-initialized")
	return &MemoryStore{
		logger:  logger,
		matches: make(map[string]types.PnLMatch),
		fills:   make(map[string]types.Fill),
		hedges:  make(map[string]types.Hedge),
	}
}

func (m *MemoryStore) UpsertMatch(ctx context.Context, match types.PnLMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.matches[match.ID]; ok {
		if match.TheoA == nil {
			match.TheoA = existing.TheoA
		}
		if match.TheoB == nil {
			match.TheoB = existing.TheoB
		}
		if match.EventTime == nil {
			match.EventTime = existing.EventTime
		}
		if match.SettledAt == nil {
			match.SettledAt = existing.SettledAt
		}
		if match.ResultA == nil {
			match.ResultA = existing.ResultA
		}
		if match.Category == nil {
			match.Category = existing.Category
		}
	}
	m.matches[match.ID] = match
	m.logger.Debug("pnl-match-upserted", zap.String("match-id", match.ID))
	return nil
}

func (m *MemoryStore) GetMatch(ctx context.Context, matchID string) (*types.PnLMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match, ok := m.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match %s not found", matchID)
	}
	return &match, nil
}

func (m *MemoryStore) GetAllMatches(ctx context.Context) ([]types.PnLMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.PnLMatch, 0, len(m.matches))
	for _, match := range m.matches {
		out = append(out, match)
	}
	return out, nil
}

func (m *MemoryStore) MarkMatchSettled(ctx context.Context, matchID, resultA string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	match, ok := m.matches[matchID]
	if !ok {
		return fmt.Errorf("match %s not found", matchID)
	}
	match.ResultA = &resultA
	m.matches[matchID] = match
	m.logger.Info("pnl-match-settled", zap.String("match-id", matchID), zap.String("result-a", resultA))
	return nil
}

func (m *MemoryStore) InsertFill(ctx context.Context, f types.Fill) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.fills[f.FillID]; exists {
		return false, nil
	}
	m.fills[f.FillID] = f
	m.logger.Debug("pnl-fill-recorded",
		zap.String("fill-id", f.FillID),
		zap.String("ticker", f.Ticker),
		zap.Int("price", f.Price),
		zap.Int("count", f.Count))
	return true, nil
}

func (m *MemoryStore) LinkFillsToMatch(ctx context.Context, matchID, tickerA, tickerB string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var linked int64
	for id, f := range m.fills {
		if f.MatchID != "" {
			continue
		}
		if f.Ticker != tickerA && f.Ticker != tickerB {
			continue
		}
		f.MatchID = matchID
		m.fills[id] = f
		linked++
	}
	return linked, nil
}

func (m *MemoryStore) GetFillsForMatch(ctx context.Context, matchID string) ([]types.Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Fill
	for _, f := range m.fills {
		if f.MatchID == matchID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetAllFillsByMatch(ctx context.Context) (map[string][]types.Fill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]types.Fill)
	for _, f := range m.fills {
		if f.MatchID == "" {
			continue
		}
		out[f.MatchID] = append(out[f.MatchID], f)
	}
	return out, nil
}

func (m *MemoryStore) InsertHedge(ctx context.Context, h types.Hedge) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	h.ID = m.nextID
	m.hedges[fmt.Sprintf("%d", h.ID)] = h
	m.logger.Info("pnl-hedge-recorded",
		zap.Int64("hedge-id", h.ID),
		zap.String("match-id", h.MatchID),
		zap.Float64("amount-usd", h.AmountUSD))
	return h.ID, nil
}

func (m *MemoryStore) UpdateHedgeOutcome(ctx context.Context, hedgeID int64, outcome types.HedgeOutcome) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%d", hedgeID)
	h, ok := m.hedges[key]
	if !ok {
		return false, nil
	}
	h.Outcome = &outcome
	m.hedges[key] = h
	return true, nil
}

func (m *MemoryStore) GetHedgesForMatch(ctx context.Context, matchID string) ([]types.Hedge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Hedge
	for _, h := range m.hedges {
		if h.MatchID == matchID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteHedge(ctx context.Context, hedgeID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%d", hedgeID)
	if _, ok := m.hedges[key]; !ok {
		return false, nil
	}
	delete(m.hedges, key)
	return true, nil
}

func (m *MemoryStore) GetAllHedgesByMatch(ctx context.Context) (map[string][]types.Hedge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]types.Hedge)
	for _, h := range m.hedges {
		out[h.MatchID] = append(out[h.MatchID], h)
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	m.logger.Info("closing-pnl-memory-store")
	return nil
}
