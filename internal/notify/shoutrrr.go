package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/containrrr/shoutrrr"
	"golang.org/x/time/rate"
)

// SendFunc delivers message to a shoutrrr service URL.
type SendFunc func(rawURL, message string) error

// ShoutrrrSink pushes reminders to external services (Slack, Telegram, SMTP,
// ...) addressed by shoutrrr URLs. Deliveries beyond the configured rate are
// dropped rather than queued.
type ShoutrrrSink struct {
	urls     []string
	send     SendFunc
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer Observer
}

// ShoutrrrOption configures a ShoutrrrSink.
type ShoutrrrOption func(*ShoutrrrSink)

// WithSendFunc replaces shoutrrr.Send, mainly for tests.
func WithSendFunc(send SendFunc) ShoutrrrOption {
	return func(s *ShoutrrrSink) {
		if send != nil {
			s.send = send
		}
	}
}

// WithDeliveryObserver reports delivery outcomes.
func WithDeliveryObserver(observer Observer) ShoutrrrOption {
	return func(s *ShoutrrrSink) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// NewShoutrrrSink builds a sink for urls allowing perSecond deliveries per
// second with a burst of burst. A non-positive perSecond disables throttling.
func NewShoutrrrSink(urls []string, perSecond float64, burst int, logger *slog.Logger, opts ...ShoutrrrOption) *ShoutrrrSink {
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	s := &ShoutrrrSink{
		urls:     cleaned,
		send:     shoutrrr.Send,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit sends n to every configured URL.
func (s *ShoutrrrSink) Emit(ctx context.Context, n Notification) {
	if len(s.urls) == 0 {
		return
	}
	// Callbacks run on their own goroutines, so pacing here blocks no caller.
	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.WarnContext(ctx, "notification abandoned while throttled", "sink", "shoutrrr", "event_id", n.EventID, "error", err)
		s.observer.NotificationFailed("shoutrrr")
		return
	}
	for _, u := range s.urls {
		if err := s.send(u, n.Message); err != nil {
			s.logger.ErrorContext(ctx, "notification delivery failed", "sink", "shoutrrr", "service", serviceScheme(u), "event_id", n.EventID, "error", err)
			s.observer.NotificationFailed("shoutrrr")
			continue
		}
		s.observer.NotificationDelivered("shoutrrr")
	}
}

// serviceScheme returns the URL scheme so credentials never reach the logs.
func serviceScheme(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return rawURL[:i]
	}
	return "unknown"
}
