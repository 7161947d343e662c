package exchange

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/signer"
	"github.com/mselser95/quoter/pkg/types"
	"github.com/mselser95/quoter/pkg/websocket"
)

// Stream is the authenticated WebSocket half of ExchangeGateway (spec §6):
// one session subscribed to {orderbook_snapshot, orderbook_delta, fill,
// position} for a set of market tickers, resubscribing on every reconnect
// and calling the OnReset hook first. Stream holds no book state itself
// and clears no cache; what a reset does is up to the hook.
type Stream struct {
	mgr    *websocket.Manager
	signer *signer.Signer
	logger *zap.Logger

	mu      sync.Mutex
	tickers map[string]struct{}
	subID   int

	events  chan types.StreamEvent
	onReset func()
}

// StreamConfig configures a Stream.
type StreamConfig struct {
	WSURL   string
	Signer  *signer.Signer
	Logger  *zap.Logger
	OnReset func() // invoked after every (re)connect, before resubscribing
}

// NewStream builds a Stream on top of a generic websocket.Manager.
func NewStream(cfg StreamConfig) (*Stream, error) {
	headers, err := cfg.Signer.Sign("GET", "/trade-api/ws/v2", time.Now())
	if err != nil {
		return nil, fmt.Errorf("sign ws handshake: %w", err)
	}

	httpHeader := buildAuthHeader(headers)

	s := &Stream{
		signer:  cfg.Signer,
		logger:  cfg.Logger,
		tickers: make(map[string]struct{}),
		events:  make(chan types.StreamEvent, 1024),
		onReset: cfg.OnReset,
	}

	s.mgr = websocket.New(websocket.Config{
		URL:                   cfg.WSURL,
		Header:                httpHeader,
		DialTimeout:           10 * time.Second,
		PongTimeout:           15 * time.Second,
		PingInterval:          5 * time.Second,
		ReconnectInitialDelay: 500 * time.Millisecond,
		ReconnectMaxDelay:     30 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     1024,
		Logger:                cfg.Logger,
	})
	s.mgr.OnConnect(s.handleConnect)

	return s, nil
}

func buildAuthHeader(h signer.Headers) http.Header {
	return http.Header{
		"KALSHI-ACCESS-KEY":       {h.KeyID},
		"KALSHI-ACCESS-TIMESTAMP": {h.Timestamp},
		"KALSHI-ACCESS-SIGNATURE": {h.Signature},
	}
}

// Start connects and begins the decode loop.
func (s *Stream) Start() error {
	if err := s.mgr.Start(); err != nil {
		return err
	}
	go s.decodeLoop()
	return nil
}

// Close tears down the underlying connection.
func (s *Stream) Close() error {
	return s.mgr.Close()
}

// Events exposes decoded StreamEvents for QuotingCore to consume.
func (s *Stream) Events() <-chan types.StreamEvent {
	return s.events
}

// Subscribe adds tickers to the live subscription set and, if connected,
// sends an incremental subscribe command immediately.
func (s *Stream) Subscribe(tickers ...string) error {
	s.mu.Lock()
	fresh := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := s.tickers[t]; !ok {
			s.tickers[t] = struct{}{}
			fresh = append(fresh, t)
		}
	}
	s.mu.Unlock()

	if len(fresh) == 0 || !s.mgr.Connected() {
		return nil
	}
	return s.sendSubscribe(fresh)
}

// Unsubscribe removes tickers from the live set (no resubscribe needed on
// the exchange side until the next reconnect cycle).
func (s *Stream) Unsubscribe(tickers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tickers {
		delete(s.tickers, t)
	}
}

func (s *Stream) handleConnect(ctx context.Context) error {
	if s.onReset != nil {
		s.onReset()
	}

	s.mu.Lock()
	all := make([]string, 0, len(s.tickers))
	for t := range s.tickers {
		all = append(all, t)
	}
	s.mu.Unlock()

	if len(all) == 0 {
		return nil
	}
	return s.sendSubscribe(all)
}

func (s *Stream) sendSubscribe(tickers []string) error {
	s.mu.Lock()
	s.subID++
	id := s.subID
	s.mu.Unlock()

	msg := wireSubscribeMessage{
		ID:  id,
		Cmd: "subscribe",
		Params: wireSubParams{
			Channels:      []string{"orderbook_snapshot", "orderbook_delta", "fill", "position"},
			MarketTickers: tickers,
		},
	}
	return s.mgr.Send(msg)
}

func (s *Stream) decodeLoop() {
	for raw := range s.mgr.Messages() {
		event, ok := decodeWireMessage(raw, s.logger)
		if !ok {
			continue
		}

		select {
		case s.events <- event:
		default:
			if s.logger != nil {
				s.logger.Warn("stream event channel full, dropping event")
			}
		}
	}
}

func decodeWireMessage(raw []byte, logger *zap.Logger) (types.StreamEvent, bool) {
	var envelope wireStreamMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		if logger != nil {
			logger.Warn("failed to decode stream envelope", zap.Error(err))
		}
		return types.StreamEvent{}, false
	}

	switch envelope.Type {
	case "orderbook_snapshot":
		var m wireSnapshotMsg
		if err := json.Unmarshal(envelope.Msg, &m); err != nil {
			return types.StreamEvent{}, false
		}
		return types.StreamEvent{
			Kind: types.EventOrderbookSnapshot,
			Snapshot: types.OrderbookSnapshot{
				Ticker: m.MarketTicker,
				Yes:    toPriceLevels(m.Yes),
				No:     toPriceLevels(m.No),
			},
		}, true

	case "orderbook_delta":
		var m wireDeltaMsg
		if err := json.Unmarshal(envelope.Msg, &m); err != nil {
			return types.StreamEvent{}, false
		}
		return types.StreamEvent{
			Kind: types.EventOrderbookDelta,
			Delta: types.OrderbookDelta{
				Ticker: m.MarketTicker,
				Side:   types.Side(m.Side),
				Price:  m.Price,
				Qty:    m.Delta,
			},
		}, true

	case "fill":
		var m wireFillMsg
		if err := json.Unmarshal(envelope.Msg, &m); err != nil {
			return types.StreamEvent{}, false
		}
		created, _ := time.Parse(time.RFC3339, m.CreatedTime)
		return types.StreamEvent{
			Kind: types.EventFill,
			Fill: types.Fill{
				FillID:      m.TradeID,
				Ticker:      m.Ticker,
				Side:        types.Side(m.Side),
				Action:      m.Action,
				Price:       priceForSide(m),
				Count:       m.Count,
				Fee:         m.FeeCents,
				IsTaker:     m.IsTaker,
				CreatedTime: created,
			},
		}, true

	case "position":
		var m wirePositionMsg
		if err := json.Unmarshal(envelope.Msg, &m); err != nil {
			return types.StreamEvent{}, false
		}
		return types.StreamEvent{
			Kind: types.EventPosition,
			Position: types.PositionUpdate{
				Ticker: m.Ticker,
				YesNet: m.YesNet,
				NoNet:  m.NoNet,
			},
		}, true

	default:
		if logger != nil {
			logger.Debug("ignoring unknown stream message type", zap.String("type", envelope.Type))
		}
		return types.StreamEvent{}, false
	}
}

func priceForSide(m wireFillMsg) int {
	if m.Side == "no" {
		return m.NoPrice
	}
	return m.YesPrice
}
