package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func plainVerifier(hashedPassword, password string) error {
	if hashedPassword != password {
		return ErrInvalidCredentials
	}
	return nil
}

func sequenceTokens(tokens ...string) func() string {
	return func() string {
		if len(tokens) == 0 {
			return "fallback"
		}
		token := tokens[0]
		tokens = tokens[1:]
		return token
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
		creds := &credentialStoreStub{
			credentials: UserCredentials{
				User:         User{ID: 1, Username: "testuser"},
				PasswordHash: "password",
			},
		}

		repo := newSessionRepositoryStub()
		svc := NewAuthService(creds, repo, plainVerifier, sequenceTokens("session-id", "session-token"), func() time.Time { return now }, time.Hour)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: " testuser ", Password: "password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}

		if result.Session.ID != "session-id" || result.Session.Token != "session-token" {
			t.Fatalf("unexpected session identifiers: %#v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("expected expiry one TTL after now, got %s", result.Session.ExpiresAt)
		}
		if result.User.ID != 1 {
			t.Fatalf("expected user 1, got %d", result.User.ID)
		}
		if len(repo.deleteCalls) != 1 || !repo.deleteCalls[0].Equal(now) {
			t.Fatalf("expected DeleteExpiredSessions to be called with now, got %#v", repo.deleteCalls)
		}
	})

	t.Run("defaults the session TTL", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: 1}, PasswordHash: "pw"}}
		svc := NewAuthService(creds, nil, plainVerifier, sequenceTokens("id", "token"), func() time.Time { return now }, 0)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "u", Password: "pw"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if !result.Session.ExpiresAt.Equal(now.Add(DefaultSessionTTL)) {
			t.Fatalf("expected default TTL, got %s", result.Session.ExpiresAt.Sub(now))
		}
	})

	t.Run("rejects invalid credentials with sentinel error", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: 1}, PasswordHash: "expected"},
		}
		svc := NewAuthService(creds, nil, plainVerifier, nil, time.Now, time.Hour)

		for _, params := range []AuthenticateParams{
			{Username: "testuser", Password: "wrong"},
			{Username: "", Password: "expected"},
			{Username: "testuser", Password: ""},
		} {
			if _, err := svc.Authenticate(context.Background(), params); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %#v, got %v", params, err)
			}
		}
	})

	t.Run("maps unknown users to invalid credentials", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, nil, plainVerifier, nil, time.Now, time.Hour)
		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "ghost", Password: "pw"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: 1}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.createErr = expected

		svc := NewAuthService(creds, repo, plainVerifier, func() string { return "token" }, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "user", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected error %v, got %v", expected, err)
		}
	})

	t.Run("propagates cleanup failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("cleanup-failed")
		creds := &credentialStoreStub{
			credentials: UserCredentials{User: User{ID: 1}, PasswordHash: "secret"},
		}
		repo := newSessionRepositoryStub()
		repo.deleteErr = expected

		svc := NewAuthService(creds, repo, plainVerifier, func() string { return "token" }, time.Now, time.Hour)

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "user", Password: "secret"})
		if !errors.Is(err, expected) {
			t.Fatalf("expected cleanup error %v, got %v", expected, err)
		}
	})

	t.Run("refuses to issue empty tokens", func(t *testing.T) {
		t.Parallel()

		creds := &credentialStoreStub{credentials: UserCredentials{User: User{ID: 1}, PasswordHash: "pw"}}
		svc := NewAuthService(creds, newSessionRepositoryStub(), plainVerifier, nil, time.Now, time.Hour)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Username: "u", Password: "pw"}); err == nil {
			t.Fatalf("expected an error when the token generator yields nothing")
		}
	})
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes known sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now().UTC()
		repo := newSessionRepositoryStub()
		repo.seed(Session{ID: "s1", UserID: 1, Token: "token", ExpiresAt: now.Add(time.Hour)})
		svc := NewAuthService(&credentialStoreStub{}, repo, nil, nil, func() time.Time { return now }, time.Hour)

		if err := svc.RevokeSession(context.Background(), " token "); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}
		session, err := repo.GetSession(context.Background(), "token")
		if err != nil {
			t.Fatalf("session should remain stored: %v", err)
		}
		if session.RevokedAt == nil || !session.RevokedAt.Equal(now) {
			t.Fatalf("expected revocation at now, got %#v", session.RevokedAt)
		}
	})

	t.Run("rejects empty and unknown tokens", func(t *testing.T) {
		t.Parallel()

		svc := NewAuthService(&credentialStoreStub{}, newSessionRepositoryStub(), nil, nil, time.Now, time.Hour)
		for _, token := range []string{"", "   ", "missing"} {
			if err := svc.RevokeSession(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized for %q, got %v", token, err)
			}
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("revoke failed")
		repo := newSessionRepositoryStub()
		repo.revokeErr = expected
		svc := NewAuthService(&credentialStoreStub{}, repo, nil, nil, time.Now, time.Hour)

		if err := svc.RevokeSession(context.Background(), "token"); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	user := User{ID: 7, Username: "testuser"}

	newService := func(sessions ...Session) *AuthService {
		repo := newSessionRepositoryStub()
		for _, session := range sessions {
			repo.seed(session)
		}
		creds := &credentialStoreStub{credentials: UserCredentials{User: user}}
		return NewAuthService(creds, repo, nil, nil, func() time.Time { return now }, time.Hour)
	}

	t.Run("returns the principal for active sessions", func(t *testing.T) {
		t.Parallel()

		svc := newService(Session{ID: "s", UserID: user.ID, Token: "token", ExpiresAt: now.Add(time.Minute)})
		principal, err := svc.ValidateSession(context.Background(), "token")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.UserID != user.ID || principal.Username != user.Username {
			t.Fatalf("unexpected principal %#v", principal)
		}
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		t.Parallel()

		svc := newService()
		for _, token := range []string{"", "missing"} {
			if _, err := svc.ValidateSession(context.Background(), token); !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized for %q, got %v", token, err)
			}
		}
	})

	t.Run("rejects expired sessions", func(t *testing.T) {
		t.Parallel()

		svc := newService(Session{ID: "s", UserID: user.ID, Token: "token", ExpiresAt: now})
		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("rejects revoked sessions", func(t *testing.T) {
		t.Parallel()

		revokedAt := now.Add(-time.Minute)
		svc := newService(Session{ID: "s", UserID: user.ID, Token: "token", ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt})
		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrSessionRevoked) {
			t.Fatalf("expected ErrSessionRevoked, got %v", err)
		}
	})

	t.Run("rejects sessions whose user disappeared", func(t *testing.T) {
		t.Parallel()

		svc := newService(Session{ID: "s", UserID: 99, Token: "token", ExpiresAt: now.Add(time.Hour)})
		if _, err := svc.ValidateSession(context.Background(), "token"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

// credentialStoreStub implements CredentialStore for tests.
type credentialStoreStub struct {
	credentials UserCredentials
	err         error
}

func (c *credentialStoreStub) GetUserCredentialsByUsername(ctx context.Context, username string) (UserCredentials, error) {
	if c.err != nil {
		return UserCredentials{}, c.err
	}
	if c.credentials.User.ID == 0 {
		return UserCredentials{}, ErrNotFound
	}
	return c.credentials, nil
}

func (c *credentialStoreStub) GetUser(ctx context.Context, id int64) (User, error) {
	if c.err != nil {
		return User{}, c.err
	}
	if c.credentials.User.ID == id {
		return c.credentials.User, nil
	}
	return User{}, ErrNotFound
}

// sessionRepositoryStub provides an in-memory implementation of SessionRepository for tests.
type sessionRepositoryStub struct {
	sessionsByID map[string]Session
	tokenToID    map[string]string

	createErr error
	getErr    error
	revokeErr error
	deleteErr error

	deleteCalls []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{
		sessionsByID: make(map[string]Session),
		tokenToID:    make(map[string]string),
	}
}

func (s *sessionRepositoryStub) seed(session Session) {
	s.sessionsByID[session.ID] = cloneSession(session)
	s.tokenToID[session.Token] = session.ID
}

func (s *sessionRepositoryStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if s.createErr != nil {
		return Session{}, s.createErr
	}
	s.seed(session)
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) GetSession(ctx context.Context, token string) (Session, error) {
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return cloneSession(s.sessionsByID[id]), nil
}

func (s *sessionRepositoryStub) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error) {
	if s.revokeErr != nil {
		return Session{}, s.revokeErr
	}
	id, ok := s.tokenToID[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	session := s.sessionsByID[id]
	revoked := revokedAt.UTC()
	session.RevokedAt = &revoked
	s.sessionsByID[id] = session
	return cloneSession(session), nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	cutoff := reference.UTC()
	s.deleteCalls = append(s.deleteCalls, cutoff)
	for id, session := range s.sessionsByID {
		if !session.ExpiresAt.After(cutoff) {
			delete(s.sessionsByID, id)
			delete(s.tokenToID, session.Token)
		}
	}
	return nil
}

func cloneSession(session Session) Session {
	clone := session
	if session.RevokedAt != nil {
		revoked := session.RevokedAt.UTC()
		clone.RevokedAt = &revoked
	}
	return clone
}
