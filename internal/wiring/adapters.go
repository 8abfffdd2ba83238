// Package wiring adapts persistence repositories to the interfaces the
// application services consume.
package wiring

import (
	"context"
	"errors"
	"time"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/persistence"
)

// UserRepositoryAdapter satisfies application.UserRepository.
type UserRepositoryAdapter struct {
	repo persistence.UserRepository
}

func NewUserRepositoryAdapter(repo persistence.UserRepository) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{repo: repo}
}

func (a *UserRepositoryAdapter) CreateUser(ctx context.Context, credentials application.UserCredentials) (application.User, error) {
	stored, err := a.repo.CreateUser(ctx, persistence.User{
		Username:     credentials.User.Username,
		PasswordHash: credentials.PasswordHash,
		CreatedAt:    credentials.User.CreatedAt,
	})
	if err != nil {
		return application.User{}, mapError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *UserRepositoryAdapter) GetUser(ctx context.Context, id int64) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *UserRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

// CredentialStoreAdapter satisfies application.CredentialStore.
type CredentialStoreAdapter struct {
	repo persistence.UserRepository
}

func NewCredentialStoreAdapter(repo persistence.UserRepository) *CredentialStoreAdapter {
	return &CredentialStoreAdapter{repo: repo}
}

func (a *CredentialStoreAdapter) GetUserCredentialsByUsername(ctx context.Context, username string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return application.UserCredentials{}, mapError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *CredentialStoreAdapter) GetUser(ctx context.Context, id int64) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, mapError(err)
	}
	return toApplicationUser(stored), nil
}

// SessionRepositoryAdapter satisfies application.SessionRepository.
type SessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func NewSessionRepositoryAdapter(repo persistence.SessionRepository) *SessionRepositoryAdapter {
	return &SessionRepositoryAdapter{repo: repo}
}

func (a *SessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return mapError(a.repo.DeleteExpiredSessions(ctx, reference))
}

// EventStoreAdapter satisfies application.EventStore.
type EventStoreAdapter struct {
	repo persistence.EventRepository
}

func NewEventStoreAdapter(repo persistence.EventRepository) *EventStoreAdapter {
	return &EventStoreAdapter{repo: repo}
}

func (a *EventStoreAdapter) AppendEvent(ctx context.Context, build func(id int64) (application.Event, error)) (application.Event, error) {
	stored, err := a.repo.AppendEvent(ctx, func(id int64) (persistence.Event, error) {
		event, err := build(id)
		if err != nil {
			return persistence.Event{}, err
		}
		return toPersistenceEvent(event), nil
	})
	if err != nil {
		return application.Event{}, mapError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *EventStoreAdapter) ListEventsByOwner(ctx context.Context, ownerID int64) ([]application.Event, error) {
	models, err := a.repo.ListEventsByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

// mapError translates storage sentinels into the application's vocabulary.
// Errors produced by the application itself pass through untouched.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return errors.Join(application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrAlreadyExists):
		return errors.Join(application.ErrDuplicateUser, err)
	default:
		return err
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Username:  model.Username,
		CreatedAt: model.CreatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:                model.ID,
		OwnerID:           model.OwnerID,
		Name:              model.Name,
		Description:       model.Description,
		Date:              model.Date,
		Time:              model.Time,
		Start:             model.Start,
		Category:          model.Category,
		ReminderRequested: model.ReminderRequested,
		Reminder:          model.Reminder,
		ReminderStatus:    application.ReminderStatus(model.ReminderStatus),
		CreatedAt:         model.CreatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:                event.ID,
		OwnerID:           event.OwnerID,
		Name:              event.Name,
		Description:       event.Description,
		Date:              event.Date,
		Time:              event.Time,
		Start:             event.Start,
		Category:          event.Category,
		ReminderRequested: event.ReminderRequested,
		Reminder:          event.Reminder,
		ReminderStatus:    string(event.ReminderStatus),
		CreatedAt:         event.CreatedAt,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
