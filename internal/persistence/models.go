package persistence

import (
	"time"

	"github.com/example/eventplanner/internal/reminder"
)

// User is an account row. Users are immutable once created.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// Reminder status values recorded on an event at creation time.
const (
	ReminderNone    = "none"
	ReminderArmed   = "armed"
	ReminderSkipped = "skipped"
)

// Event is a calendar entry owned by a single user.
type Event struct {
	ID                int64
	OwnerID           int64
	Name              string
	Description       string
	Date              string
	Time              string
	Start             time.Time
	Category          string
	ReminderRequested bool
	// Reminder is the zero Handle unless a timer was armed at creation.
	Reminder       reminder.Handle
	ReminderStatus string
	CreatedAt      time.Time
}
