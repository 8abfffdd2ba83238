package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose reading only moves when told to.
type Manual struct {
	mu      sync.Mutex
	current time.Time
}

// NewManual returns a manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now returns the current virtual instant.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set moves the clock to t. Moving backwards is allowed.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new reading.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	m.current = m.current.Add(d)
	updated := m.current
	m.mu.Unlock()
	return updated
}
