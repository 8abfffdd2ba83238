package application

import (
	"time"

	"github.com/example/eventplanner/internal/reminder"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID   int64
	Username string
}

// HasOwner reports whether the principal identifies a user.
func (p Principal) HasOwner() bool {
	return p.UserID > 0
}

// User represents an account exposed by the application services.
type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// SignupParams captures the data required to register an account.
type SignupParams struct {
	Username string
	Password string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Username string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// ReminderStatus records what happened to an event's reminder at creation.
type ReminderStatus string

const (
	// ReminderNone means no reminder was requested.
	ReminderNone ReminderStatus = "none"
	// ReminderArmed means a timer was scheduled.
	ReminderArmed ReminderStatus = "armed"
	// ReminderSkipped means a reminder was requested but its instant had already passed.
	ReminderSkipped ReminderStatus = "skipped"
)

// EventInput captures caller provided event fields.
type EventInput struct {
	Name        string
	Description string
	Date        string
	Time        string
	Category    string
	Reminder    bool
}

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
	Reminder          reminder.Handle
	ReminderStatus    ReminderStatus
	CreatedAt         time.Time
}

// HasReminder reports whether a timer was armed for the event.
func (e Event) HasReminder() bool {
	return !e.Reminder.IsZero()
}

// CreateEventParams wraps the data required to create an event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// ListEventsParams wraps the data required to list an owner's events.
type ListEventsParams struct {
	Principal Principal
	SortBy    SortKey
}
