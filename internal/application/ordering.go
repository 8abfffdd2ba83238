package application

import (
	"slices"
	"strings"
)

// SortKey selects the ordering applied by ListEvents.
type SortKey string

const (
	// SortByInsertion keeps events in creation order.
	SortByInsertion SortKey = ""
	// SortByDate orders by start instant, earliest first.
	SortByDate SortKey = "date"
	// SortByCategory orders by category name, byte-wise ascending.
	SortByCategory SortKey = "category"
	// SortByReminder places events that requested a reminder first.
	SortByReminder SortKey = "reminder"
)

// ParseSortKey matches a caller supplied sort key exactly; case and
// surrounding whitespace matter. Unrecognised values map to SortByInsertion.
func ParseSortKey(raw string) SortKey {
	switch key := SortKey(raw); key {
	case SortByDate, SortByCategory, SortByReminder:
		return key
	default:
		return SortByInsertion
	}
}

// sortEvents orders events in place. Every ordering is stable, so ties keep
// insertion order.
func sortEvents(events []Event, key SortKey) {
	switch key {
	case SortByDate:
		slices.SortStableFunc(events, func(a, b Event) int {
			return a.Start.Compare(b.Start)
		})
	case SortByCategory:
		slices.SortStableFunc(events, func(a, b Event) int {
			return strings.Compare(a.Category, b.Category)
		})
	case SortByReminder:
		slices.SortStableFunc(events, func(a, b Event) int {
			switch {
			case a.ReminderRequested == b.ReminderRequested:
				return 0
			case a.ReminderRequested:
				return -1
			default:
				return 1
			}
		})
	}
}
