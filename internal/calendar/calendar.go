// Package calendar renders events as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/notify"
)

// ContentType is the media type of an exported feed.
const ContentType = "text/calendar; charset=utf-8"

const defaultProductID = "-//eventplanner//events//EN"

// Options tune the exported feed.
type Options struct {
	// ProductID fills PRODID. Defaults to an eventplanner identifier.
	ProductID string
	// Domain qualifies event UIDs. Defaults to "eventplanner.local".
	Domain string
	// Name is the display name advertised with X-WR-CALNAME.
	Name string
	// Now stamps DTSTAMP. Defaults to time.Now.
	Now func() time.Time
}

// Export serialises events into an iCalendar document. Events with an armed
// reminder carry a DISPLAY alarm triggered the reminder offset before start.
func Export(events []application.Event, opts Options) string {
	if opts.ProductID == "" {
		opts.ProductID = defaultProductID
	}
	if opts.Domain == "" {
		opts.Domain = "eventplanner.local"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stamp := opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, e := range events {
		vevent := cal.AddEvent(UID(e.ID, opts.Domain))
		vevent.SetDtStampTime(stamp)
		if !e.CreatedAt.IsZero() {
			vevent.SetCreatedTime(e.CreatedAt)
		}
		vevent.SetStartAt(e.Start)
		vevent.SetSummary(e.Name)
		if e.Description != "" {
			vevent.SetDescription(e.Description)
		}
		if e.Category != "" {
			vevent.SetProperty(ical.ComponentPropertyCategories, e.Category)
		}

		if e.HasReminder() {
			alarm := vevent.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(trigger(e.Start.Sub(e.Reminder.FireAt())))
			alarm.SetProperty(ical.ComponentPropertyDescription, notify.ReminderMessage(e.Name))
		}
	}

	return cal.Serialize()
}

// UID builds the stable identifier of an exported event.
func UID(eventID int64, domain string) string {
	return fmt.Sprintf("event-%d@%s", eventID, domain)
}

// trigger renders a negative iCalendar duration such as -PT5M.
func trigger(before time.Duration) string {
	if before <= 0 {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteString("-PT")
	if h := before / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		before -= h * time.Hour
	}
	if m := before / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		before -= m * time.Minute
	}
	if s := before / time.Second; s > 0 || b.Len() == len("-PT") {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}
