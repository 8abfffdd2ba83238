// Package clock abstracts the time source used by reminder scheduling so that
// tests can drive virtual time instead of sleeping.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

// Now returns time.Now.
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts a plain function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// NowFunc returns c.Now as a function value, falling back to the wall clock
// when c is nil.
func NowFunc(c Clock) func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}
