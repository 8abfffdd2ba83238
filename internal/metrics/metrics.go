// Package metrics exposes Prometheus collectors for reminders, notifications
// and event creation.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/eventplanner/internal/reminder"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	remindersArmed     prometheus.Counter
	remindersFired     prometheus.Counter
	remindersCancelled prometheus.Counter
	remindersRejected  *prometheus.CounterVec
	remindersPending   prometheus.Gauge
	reminderLateness   prometheus.Histogram

	notificationsTotal *prometheus.CounterVec
	eventsCreated      *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		remindersArmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_reminders_armed_total",
			Help: "Total number of reminder timers armed",
		}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_reminders_fired_total",
			Help: "Total number of reminder timers fired",
		}),
		remindersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventplanner_reminders_cancelled_total",
			Help: "Total number of reminder timers cancelled before firing",
		}),
		remindersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplanner_reminders_rejected_total",
			Help: "Total number of reminder arming attempts rejected by the scheduler",
		}, []string{"reason"}), // past_instant, invalid_instant, other
		remindersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventplanner_reminders_pending",
			Help: "Number of reminder timers waiting to fire",
		}),
		reminderLateness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventplanner_reminder_lateness_seconds",
			Help:    "Delay between a reminder's fire instant and its dispatch",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplanner_notifications_total",
			Help: "Total number of notification deliveries by sink and outcome",
		}, []string{"sink", "outcome"}), // delivered, failed
		eventsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventplanner_events_created_total",
			Help: "Total number of events created by reminder status",
		}, []string{"reminder"}), // none, armed, skipped
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.remindersArmed,
		m.remindersFired,
		m.remindersCancelled,
		m.remindersRejected,
		m.remindersPending,
		m.reminderLateness,
		m.notificationsTotal,
		m.eventsCreated,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TimerArmed implements reminder.Observer.
func (m *Metrics) TimerArmed(time.Time) {
	m.remindersArmed.Inc()
	m.remindersPending.Inc()
}

// TimerFired implements reminder.Observer.
func (m *Metrics) TimerFired(_ time.Time, lateness time.Duration) {
	m.remindersFired.Inc()
	m.remindersPending.Dec()
	if lateness < 0 {
		lateness = 0
	}
	m.reminderLateness.Observe(lateness.Seconds())
}

// TimerCancelled implements reminder.Observer.
func (m *Metrics) TimerCancelled() {
	m.remindersCancelled.Inc()
	m.remindersPending.Dec()
}

// TimerRejected implements reminder.Observer.
func (m *Metrics) TimerRejected(err error) {
	reason := "other"
	switch {
	case errors.Is(err, reminder.ErrPastInstant):
		reason = "past_instant"
	case errors.Is(err, reminder.ErrInvalidInstant):
		reason = "invalid_instant"
	}
	m.remindersRejected.WithLabelValues(reason).Inc()
}

// NotificationDelivered implements notify.Observer.
func (m *Metrics) NotificationDelivered(sink string) {
	m.notificationsTotal.WithLabelValues(sink, "delivered").Inc()
}

// NotificationFailed implements notify.Observer.
func (m *Metrics) NotificationFailed(sink string) {
	m.notificationsTotal.WithLabelValues(sink, "failed").Inc()
}

// EventCreated counts an event by its reminder status label.
func (m *Metrics) EventCreated(reminderStatus string) {
	m.eventsCreated.WithLabelValues(reminderStatus).Inc()
}
