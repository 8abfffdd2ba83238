package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/eventplanner/internal/notify"
	"github.com/example/eventplanner/internal/reminder"
)

const (
	// DateLayout is the accepted event date format.
	DateLayout = "2006-01-02"
	// TimeLayout is the accepted event time format, 24-hour clock.
	TimeLayout = "15:04"
	// ReminderOffset is how long before an event's start its reminder fires.
	ReminderOffset = 5 * time.Minute
)

// EventStore persists events. AppendEvent runs build while holding the store
// lock so identifier assignment, reminder arming and the append are atomic.
type EventStore interface {
	AppendEvent(ctx context.Context, build func(id int64) (Event, error)) (Event, error)
	ListEventsByOwner(ctx context.Context, ownerID int64) ([]Event, error)
}

// ReminderScheduler arms one-shot timers.
type ReminderScheduler interface {
	Schedule(fireAt time.Time, fn reminder.Callback) (reminder.Handle, error)
	Cancel(h reminder.Handle) bool
}

// EventObserver is told about every created event.
type EventObserver interface {
	EventCreated(reminderStatus string)
}

// EventService creates and lists events and arms their reminders.
type EventService struct {
	events    EventStore
	scheduler ReminderScheduler
	sink      notify.Sink
	now       func() time.Time
	location  *time.Location
	observer  EventObserver
	logger    *slog.Logger
}

// NewEventService constructs an EventService with the provided dependencies.
func NewEventService(events EventStore, scheduler ReminderScheduler, sink notify.Sink, now func() time.Time, location *time.Location) *EventService {
	return NewEventServiceWithLogger(events, scheduler, sink, now, location, nil, nil)
}

// NewEventServiceWithLogger constructs an EventService with an observer and a specified logger.
func NewEventServiceWithLogger(events EventStore, scheduler ReminderScheduler, sink notify.Sink, now func() time.Time, location *time.Location, observer EventObserver, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &EventService{
		events:    events,
		scheduler: scheduler,
		sink:      sink,
		now:       now,
		location:  location,
		observer:  observer,
		logger:    defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the input, stores the event and, when a reminder is
// requested and its instant is still ahead, arms a timer for it.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		attrs := []any{"event_id", event.ID, "reminder_status", string(event.ReminderStatus)}
		if event.HasReminder() {
			attrs = append(attrs, "reminder_at", event.Reminder.FireAt())
		}
		logger.With(attrs...).InfoContext(ctx, "event created")
	}()

	if !params.Principal.HasOwner() {
		err = ErrOwnerRequired
		return
	}

	input := normalizeEventInput(params.Input)
	start, vErr := s.validateEventInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if input.Reminder && s.scheduler == nil {
		err = fmt.Errorf("reminder scheduler not configured")
		return
	}

	ownerID := params.Principal.UserID
	now := s.now()
	var armed reminder.Handle

	event, err = s.events.AppendEvent(ctx, func(id int64) (Event, error) {
		candidate := Event{
			ID:                id,
			OwnerID:           ownerID,
			Name:              input.Name,
			Description:       input.Description,
			Date:              input.Date,
			Time:              input.Time,
			Start:             start,
			Category:          input.Category,
			ReminderRequested: input.Reminder,
			ReminderStatus:    ReminderNone,
			CreatedAt:         now,
		}
		if !input.Reminder {
			return candidate, nil
		}

		reminderAt := start.Add(-ReminderOffset)
		if !reminderAt.After(now) {
			candidate.ReminderStatus = ReminderSkipped
			return candidate, nil
		}

		handle, scheduleErr := s.scheduler.Schedule(reminderAt, s.reminderCallback(candidate))
		if scheduleErr != nil {
			if errors.Is(scheduleErr, reminder.ErrPastInstant) {
				candidate.ReminderStatus = ReminderSkipped
				return candidate, nil
			}
			return Event{}, fmt.Errorf("arm reminder: %w", scheduleErr)
		}
		armed = handle
		candidate.Reminder = handle
		candidate.ReminderStatus = ReminderArmed
		return candidate, nil
	})
	if err != nil {
		if !armed.IsZero() {
			s.scheduler.Cancel(armed)
		}
		event = Event{}
		return
	}

	if s.observer != nil {
		s.observer.EventCreated(string(event.ReminderStatus))
	}
	return
}

// ListEvents returns the principal's events in the requested order. The
// returned slice is owned by the caller.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) (events []Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event store not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListEvents",
		"principal_id", params.Principal.UserID,
		"sort_by", string(params.SortBy),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(events)).DebugContext(ctx, "events listed")
	}()

	if !params.Principal.HasOwner() {
		err = ErrOwnerRequired
		return
	}

	var stored []Event
	stored, err = s.events.ListEventsByOwner(ctx, params.Principal.UserID)
	if err != nil {
		return
	}

	events = make([]Event, 0, len(stored))
	for _, e := range stored {
		if e.OwnerID == params.Principal.UserID {
			events = append(events, e)
		}
	}
	sortEvents(events, params.SortBy)
	return
}

// reminderCallback builds the timer callback for event. The callback never
// fails the firing; sink errors are the sink's concern.
func (s *EventService) reminderCallback(event Event) reminder.Callback {
	n := notify.Notification{
		OwnerID:   event.OwnerID,
		EventID:   event.ID,
		EventName: event.Name,
		StartsAt:  event.Start,
		Message:   notify.ReminderMessage(event.Name),
	}
	return func(ctx context.Context) {
		n.FiredAt = s.now()
		s.loggerWith(ctx, "FireReminder", "event_id", n.EventID, "owner_id", n.OwnerID).
			InfoContext(ctx, "reminder fired")
		if s.sink != nil {
			s.sink.Emit(ctx, n)
		}
	}
}

func normalizeEventInput(input EventInput) EventInput {
	return EventInput{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Date:        strings.TrimSpace(input.Date),
		Time:        strings.TrimSpace(input.Time),
		Category:    strings.TrimSpace(input.Category),
		Reminder:    input.Reminder,
	}
}

func (s *EventService) validateEventInput(input EventInput) (time.Time, *ValidationError) {
	vErr := &ValidationError{}

	if input.Name == "" {
		vErr.add("name", "name is required")
	}

	if input.Date == "" {
		vErr.addCause("date", "date is required", ErrInvalidDateTime)
	} else if _, err := time.Parse(DateLayout, input.Date); err != nil {
		vErr.addCause("date", "date must use the YYYY-MM-DD format", ErrInvalidDateTime)
	}

	if input.Time == "" {
		vErr.addCause("time", "time is required", ErrInvalidDateTime)
	} else if _, err := time.Parse(TimeLayout, input.Time); err != nil || len(input.Time) != len(TimeLayout) {
		vErr.addCause("time", "time must use the 24-hour HH:MM format", ErrInvalidDateTime)
	}

	if vErr.HasErrors() {
		return time.Time{}, vErr
	}

	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, input.Date+" "+input.Time, s.location)
	if err != nil {
		vErr.addCause("date", "date and time do not form a valid instant", ErrInvalidDateTime)
		return time.Time{}, vErr
	}
	return start, vErr
}
