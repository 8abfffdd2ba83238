package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInstant is returned when a fire instant is not a usable timestamp.
	ErrInvalidInstant = errors.New("reminder: invalid fire instant")
	// ErrPastInstant is returned when a fire instant is not strictly after the clock reading.
	ErrPastInstant = fmt.Errorf("%w: instant is not in the future", ErrInvalidInstant)
	// ErrNilCallback is returned when Schedule is called without a callback.
	ErrNilCallback = errors.New("reminder: nil callback")
)

// Callback is the side effect run when a timer fires.
type Callback func(ctx context.Context)

// State is the lifecycle position of a scheduled timer.
type State int

const (
	// StateUnknown is reported for handles the scheduler never issued.
	StateUnknown State = iota
	StatePending
	StateFired
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFired:
		return "fired"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to an armed timer. The zero Handle refers to
// no timer.
type Handle struct {
	id     uint64
	fireAt time.Time
}

// ID returns the scheduler-assigned timer identifier.
func (h Handle) ID() uint64 { return h.id }

// FireAt returns the instant the timer was armed for.
func (h Handle) FireAt() time.Time { return h.fireAt }

// IsZero reports whether h refers to no timer.
func (h Handle) IsZero() bool { return h.id == 0 }

// Timer is a point-in-time view of a scheduled timer.
type Timer struct {
	ID     uint64
	FireAt time.Time
	State  State
}

// Observer receives scheduler lifecycle notifications. Implementations must
// be safe for concurrent use and must not call back into the scheduler.
type Observer interface {
	TimerArmed(fireAt time.Time)
	TimerFired(fireAt time.Time, lateness time.Duration)
	TimerCancelled()
	TimerRejected(err error)
}

type nopObserver struct{}

func (nopObserver) TimerArmed(time.Time)                {}
func (nopObserver) TimerFired(time.Time, time.Duration) {}
func (nopObserver) TimerCancelled()                     {}
func (nopObserver) TimerRejected(error)                 {}
