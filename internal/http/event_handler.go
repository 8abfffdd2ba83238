package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/calendar"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
}

// EventHandler serves event creation, listing and calendar export.
type EventHandler struct {
	service   eventService
	calendar  calendar.Options
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, feed calendar.Options, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, calendar: feed, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// Create stores an event for the authenticated owner.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create event", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID, "reminder_status", string(event.ReminderStatus)).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, createEventResponse{
		Message: "Event created successfully",
		Event:   toEventDTO(event),
	})
}

// List returns the owner's events ordered by the sortBy query parameter.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, ok := h.list(w, r, "List")
	if !ok {
		return
	}

	resp := make([]eventDTO, 0, len(events))
	for _, event := range events {
		resp = append(resp, toEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Export renders the owner's events as an iCalendar feed.
func (h *EventHandler) Export(w http.ResponseWriter, r *http.Request) {
	events, ok := h.list(w, r, "Export")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	opts := h.calendar
	if opts.Name == "" && principal.Username != "" {
		opts.Name = principal.Username + " events"
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(calendar.Export(events, opts))); err != nil {
		h.log(r.Context(), "Export", "principal_id", principal.UserID).ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request, operation string) ([]application.Event, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}

	principal, _ := PrincipalFromContext(r.Context())
	sortBy := application.ParseSortKey(r.URL.Query().Get("sortBy"))
	logger := h.log(r.Context(), operation, "principal_id", principal.UserID, "sort_by", string(sortBy))

	events, err := h.service.ListEvents(r.Context(), application.ListEventsParams{
		Principal: principal,
		SortBy:    sortBy,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to list events", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return nil, false
	}

	logger.InfoContext(r.Context(), "events listed", "count", len(events))
	return events, true
}

type eventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Category    string `json:"category"`
	Reminder    bool   `json:"reminder"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
		Time:        r.Time,
		Category:    r.Category,
		Reminder:    r.Reminder,
	}
}

type eventDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Category       string `json:"category"`
	Reminder       bool   `json:"reminder"`
	ReminderStatus string `json:"reminder_status"`
	ReminderAt     string `json:"reminder_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type createEventResponse struct {
	Message string   `json:"message"`
	Event   eventDTO `json:"event"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:             event.ID,
		Name:           event.Name,
		Description:    event.Description,
		Date:           event.Date,
		Time:           event.Time,
		Category:       event.Category,
		Reminder:       event.ReminderRequested,
		ReminderStatus: string(event.ReminderStatus),
		CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.HasReminder() {
		dto.ReminderAt = event.Reminder.FireAt().Format(time.RFC3339)
	}
	return dto
}
