package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type reminderStream interface {
	Serve(ctx context.Context, conn *websocket.Conn, ownerID int64)
}

// ReminderHandler upgrades authenticated requests to a websocket that
// receives the caller's fired reminders.
type ReminderHandler struct {
	hub      reminderStream
	base     context.Context
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewReminderHandler builds a handler whose streams also end when base is
// cancelled, since hijacked connections outlive http.Server.Shutdown.
func NewReminderHandler(base context.Context, hub reminderStream, logger *slog.Logger) *ReminderHandler {
	if base == nil {
		base = context.Background()
	}
	return &ReminderHandler{
		hub:  hub,
		base: base,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: defaultLogger(logger),
	}
}

// Stream serves GET /reminders/stream.
func (h *ReminderHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := handlerLogger(r.Context(), h.logger, "ReminderHandler", "Stream", "principal_id", principal.UserID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	// The server read deadline survives the hijack.
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	logger.InfoContext(ctx, "reminder stream opened")
	h.hub.Serve(ctx, conn, principal.UserID)
	logger.InfoContext(ctx, "reminder stream closed")
}
