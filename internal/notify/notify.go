// Package notify delivers fired reminders to their destinations.
//
// Every Sink is fire-and-forget: Emit never returns an error, so a failed
// delivery can never fail the timer that produced it. Failures are logged and
// reported to the optional Observer.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notification is a single reminder message.
type Notification struct {
	OwnerID   int64     `json:"owner_id"`
	EventID   int64     `json:"event_id"`
	EventName string    `json:"event_name"`
	StartsAt  time.Time `json:"starts_at"`
	Message   string    `json:"message"`
	FiredAt   time.Time `json:"fired_at"`
}

// ReminderMessage renders the text shown for an upcoming event.
func ReminderMessage(eventName string) string {
	return fmt.Sprintf("Reminder: Event '%s' is starting soon!", eventName)
}

// Sink accepts notifications.
type Sink interface {
	Emit(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Observer is told about each delivery attempt.
type Observer interface {
	NotificationDelivered(sink string)
	NotificationFailed(sink string)
}

type nopObserver struct{}

func (nopObserver) NotificationDelivered(string) {}
func (nopObserver) NotificationFailed(string)    {}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit logs n.
func (s *LogSink) Emit(ctx context.Context, n Notification) {
	s.logger.InfoContext(ctx, n.Message,
		"sink", "log",
		"owner_id", n.OwnerID,
		"event_id", n.EventID,
		"starts_at", n.StartsAt,
	)
}

// Fanout emits every notification to each of its sinks in order. A panicking
// sink is logged and skipped.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout combines sinks; nil entries are dropped.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Fanout{sinks: kept, logger: logger}
}

// Emit forwards n to every sink.
func (f *Fanout) Emit(ctx context.Context, n Notification) {
	for _, s := range f.sinks {
		f.emitOne(ctx, s, n)
	}
}

func (f *Fanout) emitOne(ctx context.Context, s Sink, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.ErrorContext(ctx, "notification sink panicked", "panic", r, "event_id", n.EventID)
		}
	}()
	s.Emit(ctx, n)
}
