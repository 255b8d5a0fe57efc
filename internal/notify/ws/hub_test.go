package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"marketScope/internal/notify"
)

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)
	defer conn.Close()

	// Registration races the broadcast; give the hub a beat to attach the
	// client before sending.
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(notify.Message{Type: notify.TypeNFTMinted, Data: notify.MintedPayload{
		TokenID: "7",
		Owner:   "0x00000000000000000000000000000000000000b1",
	}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != notify.TypeNFTMinted {
		t.Fatalf("type mismatch: %s", msg.Type)
	}

	var payload notify.MintedPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.TokenID != "7" {
		t.Fatalf("token id mismatch: %s", payload.TokenID)
	}
}

func TestLateUpgradeAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	served := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r)
		close(served)
	}))
	defer server.Close()

	// Shut the hub down before any client connects.
	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not shut down")
	}

	conn := dialHub(t, server)
	defer conn.Close()

	// The handler must refuse the connection and return instead of blocking
	// on a register channel nobody drains.
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeHTTP blocked after hub shutdown")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected closed connection after refused upgrade")
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// Run is intentionally not started: the queue fills and further messages
	// are dropped instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < broadcastBufferSize+10; i++ {
			hub.Broadcast(notify.Message{Type: notify.TypeNFTListed})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a full queue")
	}
}
