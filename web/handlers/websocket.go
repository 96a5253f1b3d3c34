package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/ordervox/ordervox/pkg/types"
)

// WebSocketHub fans executed-command events out to connected dashboard
// clients. Wire it to the engine with HubListener.
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	origins []string
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWebSocketHub creates a hub accepting the given websocket origins.
func NewWebSocketHub(origins []string) *WebSocketHub {
	return &WebSocketHub{
		clients: make(map[*wsClient]bool),
		origins: origins,
	}
}

// HubListener adapts the hub to the engine's result listener signature.
func (h *WebSocketHub) HubListener() func(sessionID string, cmd *types.Command, res *types.Result) {
	return func(sessionID string, cmd *types.Command, res *types.Result) {
		h.Broadcast(commandEvent{
			Type:      "command_executed",
			SessionID: sessionID,
			Intent:    string(cmd.Intent.Name),
			Result:    res,
			At:        time.Now(),
		})
	}
}

// Broadcast pushes one event to every connected client. Clients whose send
// buffer is full are dropped.
func (h *WebSocketHub) Broadcast(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: failed to marshal websocket event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stop disconnects every client.
func (h *WebSocketHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for client := range h.clients {
		close(client.send)
		_ = client.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.clients = make(map[*wsClient]bool)
}

// ServeHTTP upgrades the connection and starts the client pumps.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("websocket client connected (total: %d)", total)

	go h.writePump(client)
	go h.readPump(client)
}

// writePump forwards queued events to the connection.
func (h *WebSocketHub) writePump(c *wsClient) {
	defer h.drop(c)

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			return
		}
	}
}

// readPump drains client messages to detect disconnects.
func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.drop(c)

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

// drop removes a client and closes its connection.
func (h *WebSocketHub) drop(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// OriginsFor builds the allowed origin patterns for a host/port pair.
func OriginsFor(host string, port int) []string {
	return []string{
		fmt.Sprintf("%s:%d", host, port),
		fmt.Sprintf("localhost:%d", port),
		fmt.Sprintf("127.0.0.1:%d", port),
	}
}
