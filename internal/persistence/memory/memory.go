// Package memory provides the process-local event store. Contents do not
// survive a restart.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/eventplanner/internal/persistence"
)

// EventStore keeps events in insertion order behind a RWMutex.
type EventStore struct {
	mu     sync.RWMutex
	events []persistence.Event
	lastID int64
}

// NewEventStore returns an empty store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *EventStore) Close() error {
	return nil
}

// AppendEvent reserves the next identifier and appends the event returned by
// build. build runs while the store lock is held, so it must not call back
// into the store. When build fails the identifier is released and nothing is
// appended.
func (s *EventStore) AppendEvent(ctx context.Context, build persistence.EventBuilder) (persistence.Event, error) {
	if build == nil {
		return persistence.Event{}, fmt.Errorf("memory: nil event builder")
	}
	if err := ctx.Err(); err != nil {
		return persistence.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.lastID + 1
	event, err := build(id)
	if err != nil {
		return persistence.Event{}, err
	}
	event.ID = id
	if event.OwnerID == 0 {
		return persistence.Event{}, fmt.Errorf("memory: event %d has no owner: %w", id, persistence.ErrConstraintViolation)
	}

	s.lastID = id
	s.events = append(s.events, event)
	return event, nil
}

// ListEventsByOwner returns a fresh slice of the owner's events in insertion order.
func (s *EventStore) ListEventsByOwner(ctx context.Context, ownerID int64) ([]persistence.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]persistence.Event, 0)
	for _, event := range s.events {
		if event.OwnerID == ownerID {
			result = append(result, event)
		}
	}
	return result, nil
}

// Len reports how many events are stored across all owners.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

var _ persistence.EventRepository = (*EventStore)(nil)
