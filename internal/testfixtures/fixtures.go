package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account.
type UserFixture struct {
	Username     string
	Password     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		Username:     fmt.Sprintf("user-%03d", idx),
		Password:     fmt.Sprintf("password-%03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUsername overrides the generated username.
func WithUsername(username string) UserOption {
	return func(f *UserFixture) {
		f.Username = username
	}
}

// WithPassword overrides the plaintext password.
func WithPassword(password string) UserOption {
	return func(f *UserFixture) {
		f.Password = password
	}
}

// WithPasswordHash overrides the stored hash.
func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// SignupParams returns the fixture as signup input.
func (f UserFixture) SignupParams() application.SignupParams {
	return application.SignupParams{Username: f.Username, Password: f.Password}
}

// Credentials returns the fixture as stored credentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         application.User{Username: f.Username, CreatedAt: f.CreatedAt},
		PasswordHash: f.PasswordHash,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		Username:     f.Username,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Event fixtures ----------------------------

// EventFixture represents deterministic event input.
type EventFixture struct {
	Name        string
	Description string
	Date        string
	Time        string
	Category    string
	Reminder    bool
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns an event starting one day after ReferenceTime, with
// a distinct name and hour per call.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	start := referenceTime.Add(24*time.Hour + time.Duration(idx%8)*time.Hour)
	fixture := EventFixture{
		Name:        fmt.Sprintf("Event %03d", idx),
		Description: fmt.Sprintf("Description %03d", idx),
		Date:        start.Format(application.DateLayout),
		Time:        start.Format(application.TimeLayout),
		Category:    "General",
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventName overrides the event name.
func WithEventName(name string) EventOption {
	return func(f *EventFixture) {
		f.Name = name
	}
}

// WithEventStart sets the date and time fields from t.
func WithEventStart(t time.Time) EventOption {
	return func(f *EventFixture) {
		f.Date = t.Format(application.DateLayout)
		f.Time = t.Format(application.TimeLayout)
	}
}

// WithEventDateTime sets the raw date and time fields.
func WithEventDateTime(date, clock string) EventOption {
	return func(f *EventFixture) {
		f.Date = date
		f.Time = clock
	}
}

// WithEventCategory overrides the category.
func WithEventCategory(category string) EventOption {
	return func(f *EventFixture) {
		f.Category = category
	}
}

// WithEventReminder requests or suppresses a reminder.
func WithEventReminder(reminder bool) EventOption {
	return func(f *EventFixture) {
		f.Reminder = reminder
	}
}

// Input returns the fixture as event service input.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Name:        f.Name,
		Description: f.Description,
		Date:        f.Date,
		Time:        f.Time,
		Category:    f.Category,
		Reminder:    f.Reminder,
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    1,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(8 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUserID sets the owning user.
func WithSessionUserID(id int64) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: copyTimePtr(f.RevokedAt),
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
