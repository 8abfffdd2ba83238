package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/eventplanner/internal/application"
	"github.com/example/eventplanner/internal/clock"
	"github.com/example/eventplanner/internal/notify"
	"github.com/example/eventplanner/internal/persistence/memory"
	"github.com/example/eventplanner/internal/reminder"
	"github.com/example/eventplanner/internal/wiring"
)

// FastArgon2idParams keep password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ServiceFactory assists tests with constructing application services using
// deterministic tokens and a manual clock.
type ServiceFactory struct {
	Clock  *clock.Manual
	Tokens *TokenSequence
	Logger *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.Tokens == nil {
		factory.Tokens = NewTokenSequence("token")
	}
	if factory.Logger == nil {
		factory.Logger = DiscardLogger()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(c *clock.Manual) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = c
	}
}

// WithTokens overrides the token sequence used by the factory.
func WithTokens(tokens *TokenSequence) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Tokens = tokens
	}
}

// WithLogger overrides the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewUserService builds a user service over users.
func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(
		users,
		application.NewPasswordHasher(FastArgon2idParams),
		clock.NowFunc(f.Clock),
		f.Logger,
	)
}

// NewAuthService builds an auth service issuing tokens from the factory sequence.
func (f *ServiceFactory) NewAuthService(credentials application.CredentialStore, sessions application.SessionRepository, ttl time.Duration) *application.AuthService {
	return application.NewAuthServiceWithLogger(
		credentials,
		sessions,
		application.VerifyPassword,
		f.Tokens.NextFunc(),
		clock.NowFunc(f.Clock),
		ttl,
		f.Logger,
	)
}

// NewScheduler builds a reminder scheduler driven by the factory clock.
func (f *ServiceFactory) NewScheduler() *reminder.Scheduler {
	return reminder.New(f.Clock, reminder.WithLogger(f.Logger))
}

// NewEventService builds an event service in UTC.
func (f *ServiceFactory) NewEventService(events application.EventStore, scheduler application.ReminderScheduler, sink notify.Sink) *application.EventService {
	return application.NewEventServiceWithLogger(
		events,
		scheduler,
		sink,
		clock.NowFunc(f.Clock),
		time.UTC,
		nil,
		f.Logger,
	)
}

// Environment is a fully wired service stack over real stores: SQLite for
// users and sessions, the memory store for events and a manual-clock
// reminder scheduler whose notifications land in Sink.
type Environment struct {
	Factory   *ServiceFactory
	Clock     *clock.Manual
	SQLite    *SQLiteHarness
	Events    *memory.EventStore
	Scheduler *reminder.Scheduler
	Sink      *RecordingSink

	Users        *application.UserService
	Auth         *application.AuthService
	EventService *application.EventService
}

// NewEnvironment wires an Environment. Pending reminder callbacks are awaited
// when the test finishes.
func NewEnvironment(tb testing.TB, opts ...ServiceFactoryOption) *Environment {
	tb.Helper()

	factory := NewServiceFactory(opts...)
	harness := NewSQLiteHarness(tb)
	events := memory.NewEventStore()
	scheduler := factory.NewScheduler()
	sink := &RecordingSink{}
	tb.Cleanup(scheduler.Wait)

	return &Environment{
		Factory:   factory,
		Clock:     factory.Clock,
		SQLite:    harness,
		Events:    events,
		Scheduler: scheduler,
		Sink:      sink,
		Users:     factory.NewUserService(wiring.NewUserRepositoryAdapter(harness.Users)),
		Auth: factory.NewAuthService(
			wiring.NewCredentialStoreAdapter(harness.Users),
			wiring.NewSessionRepositoryAdapter(harness.Sessions),
			application.DefaultSessionTTL,
		),
		EventService: factory.NewEventService(wiring.NewEventStoreAdapter(events), scheduler, sink),
	}
}

// Login signs user up and authenticates, returning the principal and token.
func (e *Environment) Login(tb testing.TB, user UserFixture) (application.Principal, string) {
	tb.Helper()

	ctx := context.Background()
	if _, err := e.Users.Signup(ctx, user.SignupParams()); err != nil {
		tb.Fatalf("signup %q: %v", user.Username, err)
	}
	result, err := e.Auth.Authenticate(ctx, application.AuthenticateParams{
		Username: user.Username,
		Password: user.Password,
	})
	if err != nil {
		tb.Fatalf("authenticate %q: %v", user.Username, err)
	}
	return application.Principal{UserID: result.User.ID, Username: result.User.Username}, result.Session.Token
}

// FireDue advances the clock to t and runs one scheduler tick, waiting for the
// fired callbacks to finish. It returns the number of timers fired.
func (e *Environment) FireDue(t time.Time) int {
	e.Clock.Set(t)
	fired := e.Scheduler.Tick(context.Background())
	e.Scheduler.Wait()
	return fired
}

// RecordingSink captures emitted notifications.
type RecordingSink struct {
	mu            sync.Mutex
	notifications []notify.Notification
}

// Emit records n.
func (s *RecordingSink) Emit(_ context.Context, n notify.Notification) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
}

// Notifications returns a copy of everything emitted so far.
func (s *RecordingSink) Notifications() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.notifications...)
}
