package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/study-flamingo/iq-mcp-sub000/web/handlers"
	"github.com/stretchr/testify/assert"
)

// upgradeRequest builds a WebSocket handshake request from the given origin.
func upgradeRequest(origin string) *http.Request {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestWebSocketHub_RejectsForeignOrigin(t *testing.T) {
	hub := handlers.NewWebSocketHub("localhost:6363", "127.0.0.1:6363")
	defer hub.Stop()

	w := httptest.NewRecorder()
	hub.ServeHTTP(w, upgradeRequest("http://evil.com"))

	// Rejected before the upgrade is attempted
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Forbidden")
}

func TestWebSocketHub_BroadcastReachesClient(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	hub.Register(&handlers.MockClient{SendChan: received})
	time.Sleep(10 * time.Millisecond) // let the hub pick up the registration

	hub.Broadcast(handlers.NewGraphUpdate(3, 2))

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), "graph_updated")
		assert.Contains(t, string(msg), `"entities":3`)
		assert.Contains(t, string(msg), `"relations":2`)
	case <-time.After(1 * time.Second):
		t.Fatal("no broadcast arrived within 1s")
	}
}

func TestWebSocketHub_SlowClientDropped(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	// Zero-capacity channel: the first broadcast cannot be delivered.
	slow := &handlers.MockClient{SendChan: make(chan []byte)}
	hub.Register(slow)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(handlers.NewGraphUpdate(1, 0))
	time.Sleep(50 * time.Millisecond)

	// The hub closes the send channel when it drops a client.
	select {
	case _, open := <-slow.SendChan:
		assert.False(t, open, "slow client's channel should be closed")
	case <-time.After(1 * time.Second):
		t.Fatal("slow client was never dropped")
	}
}
