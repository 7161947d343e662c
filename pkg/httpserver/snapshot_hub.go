package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mselser95/quoter/pkg/types"
)

// snapshotPush is the payload sent over "GET /api/stream": once to each
// client on connect, then to every client on each periodic tick. State
// changes between ticks are not pushed on their own.
type snapshotPush struct {
	Matches       []types.Match        `json:"matches"`
	RestingOrders []types.RestingOrder `json:"resting_orders"`
}

// snapshotHub fans World's match/resting-order state out to every
// connected dashboard over a periodic websocket push, grounded on the
// teacher's pkg/websocket manager's single-writer/broadcast shape
// (generalized here from an outbound client connection into an inbound
// server-side broadcaster using the same gorilla/websocket dependency).
type snapshotHub struct {
	logger   *zap.Logger
	backend  Backend
	upgrader websocket.Upgrader
	interval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	done chan struct{}
}

func newSnapshotHub(logger *zap.Logger, backend Backend) *snapshotHub {
	return &snapshotHub{
		logger:  logger,
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: 2 * time.Second,
		clients:  make(map[*websocket.Conn]struct{}),
		done:     make(chan struct{}),
	}
}

// run periodically broadcasts a full snapshot to every connected client
// until stop is called.
func (h *snapshotHub) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *snapshotHub) stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

func (h *snapshotHub) broadcast() {
	if h.backend == nil {
		return
	}
	payload := snapshotPush{
		Matches:       h.backend.Snapshot(),
		RestingOrders: h.backend.RestingOrders(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("snapshot-marshal-failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			h.logger.Warn("snapshot-push-failed", zap.Error(err))
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// handleWS implements "GET /api/stream": upgrades to a websocket and
// registers the connection to receive every subsequent broadcast, plus
// one immediate snapshot on connect.
func (h *snapshotHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("snapshot-ws-upgrade-failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	if h.backend != nil {
		payload := snapshotPush{
			Matches:       h.backend.Snapshot(),
			RestingOrders: h.backend.RestingOrders(),
		}
		if body, err := json.Marshal(payload); err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, body)
		}
	}

	go h.readUntilClose(conn)
}

// readUntilClose discards client messages (this channel is push-only) and
// unregisters the connection once the client disconnects.
func (h *snapshotHub) readUntilClose(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
