package persistence

import (
	"context"
	"time"
)

// UserRepository stores accounts. Usernames are unique.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// EventBuilder produces the event to append once the store has reserved its
// identifier. Returning an error aborts the append.
type EventBuilder func(id int64) (Event, error)

// EventRepository stores events. Appends are serialised so identifiers are
// strictly increasing and never reused.
type EventRepository interface {
	AppendEvent(ctx context.Context, build EventBuilder) (Event, error)
	ListEventsByOwner(ctx context.Context, ownerID int64) ([]Event, error)
}
