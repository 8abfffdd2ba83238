package testfixtures

import (
	"time"

	"github.com/example/eventplanner/internal/clock"
)

// NewClock returns a manual clock initialised to start. When start is the
// zero value, ReferenceTime is used.
func NewClock(start time.Time) *clock.Manual {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return clock.NewManual(start)
}
