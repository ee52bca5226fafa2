package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
)

// GraphUpdate is the message broadcast to connected clients when the
// graph changes on disk.
type GraphUpdate struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Entities  int       `json:"entities"`
	Relations int       `json:"relations"`
}

// NewGraphUpdate builds the standard change notification.
func NewGraphUpdate(entities, relations int) GraphUpdate {
	return GraphUpdate{
		Type:      "graph_updated",
		Timestamp: time.Now().UTC(),
		Entities:  entities,
		Relations: relations,
	}
}

// hubClient is the hub's view of a connection. Real connections and test
// doubles both satisfy it.
type hubClient interface {
	sendQueue() chan []byte
	shutdown()
}

// WebSocketHub fans graph-change notifications out to every connected
// browser. Clients that cannot keep up are dropped rather than allowed
// to stall the delivery loop.
type WebSocketHub struct {
	register   chan hubClient
	unregister chan hubClient
	broadcast  chan interface{}

	mu      sync.RWMutex
	clients map[hubClient]bool

	allowedOrigins map[string]bool
	originPatterns []string

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocketHub creates a hub accepting the given host:port values in
// the Origin header. With no origins it accepts only localhost on the
// default port.
func NewWebSocketHub(origins ...string) *WebSocketHub {
	if len(origins) == 0 {
		origins = []string{"localhost:6363", "127.0.0.1:6363"}
	}
	allowed := make(map[string]bool, len(origins)*2)
	for _, o := range origins {
		allowed["http://"+o] = true
		allowed["https://"+o] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHub{
		register:       make(chan hubClient),
		unregister:     make(chan hubClient),
		broadcast:      make(chan interface{}, 256),
		clients:        make(map[hubClient]bool),
		allowedOrigins: allowed,
		originPatterns: origins,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Run processes hub events until Stop is called.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.dropClient(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		case <-h.ctx.Done():
			log.Println("WebSocket hub stopping...")
			return
		}
	}
}

func (h *WebSocketHub) addClient(client hubClient) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client connected (total: %d)", count)
}

func (h *WebSocketHub) dropClient(client hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.sendQueue())
	}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("WebSocket client disconnected (total: %d)", count)
}

// fanOut delivers one message to every client, evicting any whose send
// queue is already full.
func (h *WebSocketHub) fanOut(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("ERROR: Failed to marshal WebSocket message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		queue := client.sendQueue()
		select {
		case queue <- data:
		default:
			close(queue)
			delete(h.clients, client)
		}
	}
}

// Stop disconnects every client and ends the Run loop.
func (h *WebSocketHub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.sendQueue())
		client.shutdown()
	}
	h.clients = make(map[hubClient]bool)
}

// Broadcast queues a message for delivery to all clients. The message is
// dropped when the queue is full.
func (h *WebSocketHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("WARNING: WebSocket broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *WebSocketHub) Register(client hubClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WebSocketHub) Unregister(client hubClient) {
	h.unregister <- client
}

// ServeHTTP upgrades the request and starts the client's read and write
// loops. Requests from unlisted origins are rejected before the upgrade.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && !h.allowedOrigins[origin] {
		http.Error(w, "Forbidden: invalid origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.Register(client)

	go client.writeLoop()
	go client.readLoop()
}

// Client is one live WebSocket connection.
type Client struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) sendQueue() chan []byte { return c.send }

func (c *Client) shutdown() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}

// writeLoop pushes queued messages to the peer with a bounded write
// deadline per message.
func (c *Client) writeLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			log.Printf("ERROR: WebSocket write failed: %v", err)
			return
		}
	}
}

// readLoop drains inbound frames purely to notice the peer going away.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

// MockClient stands in for a connection in tests.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) sendQueue() chan []byte { return m.SendChan }

func (m *MockClient) shutdown() {}
