// Package websocket implements a generic, self-reconnecting WebSocket
// client: a single persistent connection, a read loop that hands raw
// messages to the caller, a ping loop, and exponential-backoff
// reconnection. It carries no knowledge of the exchange's wire format —
// that decoding belongs to internal/exchange, which is the only consumer.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Manager owns a single reconnecting WebSocket connection.
type Manager struct {
	url             string
	header          http.Header
	conn            *websocket.Conn
	logger          *zap.Logger
	reconnectMgr    *ReconnectManager
	config          Config
	messageChan     chan []byte
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.RWMutex
	connected       atomic.Bool
	lastPongTime    atomic.Int64
	connectionStart atomic.Int64

	// onConnect re-issues subscriptions after every (re)connect; set by
	// the caller before Start.
	onConnect func(ctx context.Context) error
}

// Config holds WebSocket manager configuration.
type Config struct {
	URL                   string
	Header                http.Header
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Logger                *zap.Logger
}

// New creates a new WebSocket manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Manager{
		url:          cfg.URL,
		header:       cfg.Header,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		messageChan:  make(chan []byte, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// OnConnect registers a callback invoked after every successful (re)connect,
// used to re-subscribe to the union of known subscriptions (spec §5
// "background reconnector re-establishes and resubscribes").
func (m *Manager) OnConnect(fn func(ctx context.Context) error) {
	m.onConnect = fn
}

// Start establishes the initial connection and begins the read/ping/
// reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("websocket-manager-starting", zap.String("url", m.url))

	if err := m.connect(m.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.config.DialTimeout}

	m.logger.Info("connecting-to-websocket", zap.String("url", m.url))

	conn, _, err := dialer.DialContext(ctx, m.url, m.header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	now := time.Now()
	m.connected.Store(true)
	m.lastPongTime.Store(now.Unix())
	m.connectionStart.Store(now.Unix())
	ActiveConnections.Set(1)

	m.logger.Info("websocket-connected")

	if m.onConnect != nil {
		if err := m.onConnect(ctx); err != nil {
			m.logger.Warn("on-connect-callback-failed", zap.Error(err))
		}
	}

	return nil
}

// Send writes an arbitrary JSON-serializable message to the connection.
func (m *Manager) Send(v interface{}) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Connected reports whether the manager currently holds a live connection.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// Messages returns the channel of raw inbound message bytes.
func (m *Manager) Messages() <-chan []byte {
	return m.messageChan
}

func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("read-error", zap.Error(err))

			startTime := m.connectionStart.Load()
			if startTime > 0 {
				ConnectionDuration.Observe(time.Since(time.Unix(startTime, 0)).Seconds())
			}

			m.connected.Store(false)
			ActiveConnections.Set(0)
			continue
		}

		MessagesReceivedTotal.Inc()

		select {
		case m.messageChan <- message:
		default:
			m.logger.Warn("message-channel-full-dropping")
			MessagesDroppedTotal.WithLabelValues("channel_full").Inc()
		}
	}
}

func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				m.logger.Warn("ping-error", zap.Error(err))
			}
		}
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("connection-lost-initiating-reconnect")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("reconnection-failed", zap.Error(err))
		}
	}
}

// Close tears down the connection and stops all loops.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn != nil {
		_ = conn.Close()
	}

	m.wg.Wait()
	close(m.messageChan)

	m.logger.Info("websocket-manager-closed")
	return nil
}
