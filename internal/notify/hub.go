package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	hubClientBuffer = 16
	hubWriteTimeout = 10 * time.Second
)

// Hub pushes notifications to the websocket connections of their owner.
// Slow connections drop messages instead of blocking the timer callback.
type Hub struct {
	mu       sync.RWMutex
	clients  map[int64]map[*hubClient]struct{}
	logger   *slog.Logger
	observer Observer
}

type hubClient struct {
	conn *websocket.Conn
	send chan Notification
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger, observer Observer) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{
		clients:  make(map[int64]map[*hubClient]struct{}),
		logger:   logger,
		observer: observer,
	}
}

// Emit queues n on every connection owned by n.OwnerID.
func (h *Hub) Emit(ctx context.Context, n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[n.OwnerID] {
		select {
		case c.send <- n:
			h.observer.NotificationDelivered("websocket")
		default:
			h.logger.WarnContext(ctx, "websocket client too slow; dropping notification", "owner_id", n.OwnerID, "event_id", n.EventID)
			h.observer.NotificationFailed("websocket")
		}
	}
}

// Subscribers returns the number of live connections for ownerID.
func (h *Hub) Subscribers(ownerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}

// Serve registers conn for ownerID and pumps notifications to it until the
// peer disconnects or ctx ends. It closes conn before returning.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, ownerID int64) {
	c := &hubClient{conn: conn, send: make(chan Notification, hubClientBuffer)}
	h.register(ownerID, c)
	defer func() {
		h.unregister(ownerID, c)
		_ = conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return
		case <-closed:
			return
		case n := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := conn.WriteJSON(n); err != nil {
				h.logger.WarnContext(ctx, "websocket write failed", "owner_id", ownerID, "error", err)
				return
			}
		}
	}
}

func (h *Hub) register(ownerID int64, c *hubClient) {
	h.mu.Lock()
	set, ok := h.clients[ownerID]
	if !ok {
		set = make(map[*hubClient]struct{})
		h.clients[ownerID] = set
	}
	set[c] = struct{}{}
	total := len(set)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "owner_id", ownerID, "connections", total)
}

func (h *Hub) unregister(ownerID int64, c *hubClient) {
	h.mu.Lock()
	if set, ok := h.clients[ownerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, ownerID)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", "owner_id", ownerID)
}
