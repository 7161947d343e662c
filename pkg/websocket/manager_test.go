package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func testServer(t *testing.T, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(url string) Config {
	logger, _ := zap.NewDevelopment()
	return Config{
		URL:                   url,
		DialTimeout:           2 * time.Second,
		PongTimeout:           2 * time.Second,
		PingInterval:          50 * time.Millisecond,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     10,
		Logger:                logger,
	}
}

func TestManagerReceivesMessages(t *testing.T) {
	srv := testServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"fill"}`))
		time.Sleep(200 * time.Millisecond)
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	mgr := New(testConfig(url))
	if err := mgr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Close()

	select {
	case msg := <-mgr.Messages():
		if string(msg) != `{"type":"fill"}` {
			t.Errorf("unexpected message: %s", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestManagerOnConnectCallback(t *testing.T) {
	srv := testServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	mgr := New(testConfig(url))

	called := make(chan struct{}, 1)
	mgr.OnConnect(func(ctx context.Context) error {
		select {
		case called <- struct{}{}:
		default:
		}
		return nil
	})

	if err := mgr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer mgr.Close()

	if !mgr.Connected() {
		t.Error("expected manager to report connected")
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("onConnect callback was not invoked")
	}
}
