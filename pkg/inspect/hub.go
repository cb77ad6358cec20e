package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub streams event records to WebSocket clients.
//
// Publish never blocks: records go through a bounded queue and are dropped
// when it is full, so a slow client cannot stall the engine.
type Hub struct {
	clients  map[string]*websocket.Conn
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	queue   chan EventRecord
	dropped atomic.Uint64
	logger  *slog.Logger
}

// NewHub creates a hub with a queue of the given size. Non-positive sizes
// select DefaultBufferSize.
func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default().With("component", "inspect")
	}
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local debugging tool
			},
		},
		queue:  make(chan EventRecord, queueSize),
		logger: logger,
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	h.logger.Debug("inspector client connected", "client", id)

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(id)
	h.logger.Debug("inspector client disconnected", "client", id)
}

// Publish queues rec for broadcast. It drops rec if the queue is full.
func (h *Hub) Publish(rec EventRecord) {
	select {
	case h.queue <- rec:
	default:
		h.dropped.Add(1)
	}
}

// Run broadcasts queued records until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-h.queue:
			h.broadcast(rec)
		}
	}
}

// broadcast sends a record to all connected clients.
func (h *Hub) broadcast(rec EventRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for id, conn := range h.clients {
		ids = append(ids, id)
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(ids[i])
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of records discarded because the queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}
