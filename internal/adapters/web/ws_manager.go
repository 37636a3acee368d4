// Package web bridges the event bus onto WebSocket clients.
package web

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/skyward-ops/droneops/internal/adapters/web/middleware"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkSameOrigin,
}

// checkSameOrigin accepts requests without an Origin header (non-browser
// clients) and browser requests whose Origin host matches the Host the
// client connected to, whatever address the server is listening on.
func checkSameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err == nil && strings.EqualFold(parsed.Host, r.Host) {
		return true
	}

	log.Printf("WebSocket: Rejected origin: %s", origin)
	return false
}

// WSManager relays event bus envelopes to connected WebSocket clients.
// Each manager holds one bus subscription for its whole lifetime.
type WSManager struct {
	Bus     *events.Bus
	clients map[*websocket.Conn]*domain.User
	mu      sync.Mutex
}

// NewWSManager creates a manager bound to the given bus.
func NewWSManager(bus *events.Bus) *WSManager {
	return &WSManager{
		Bus:     bus,
		clients: make(map[*websocket.Conn]*domain.User),
	}
}

// Start launches the broadcast loop; it exits when ctx is cancelled.
func (m *WSManager) Start(ctx context.Context) {
	go m.broadcastLoop(ctx)
}

func (m *WSManager) broadcastLoop(ctx context.Context) {
	sub := m.Bus.Subscribe()
	defer m.Bus.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case envelope := <-sub.C:
			m.broadcast(envelope)
		}
	}
}

func (m *WSManager) broadcast(envelope domain.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for conn := range m.clients {
		if err := conn.WriteJSON(envelope); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}

func (m *WSManager) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.Close()
		delete(m.clients, conn)
	}
}

// HandleWebSocket upgrades an authenticated request and registers the
// client for event delivery.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = user
	m.mu.Unlock()

	// Reader loop: drain and discard client frames, drop the client on error.
	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
