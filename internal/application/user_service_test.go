package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestUserService_Signup(t *testing.T) {
	t.Parallel()

	hasher := NewPasswordHasher(testArgon2idParams)

	t.Run("creates users with hashed passwords", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, hasher, time.Now)

		user, err := svc.Signup(context.Background(), SignupParams{Username: "  testuser ", Password: "password"})
		if err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		if user.ID != 1 || user.Username != "testuser" {
			t.Fatalf("unexpected user %#v", user)
		}

		stored := repo.credentials["testuser"]
		if stored.PasswordHash == "password" {
			t.Fatalf("password must not be stored in plain text")
		}
		if err := VerifyPassword(stored.PasswordHash, "password"); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("assigns unique increasing ids", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, hasher, time.Now)

		var previous int64
		for _, name := range []string{"a", "b", "c"} {
			user, err := svc.Signup(context.Background(), SignupParams{Username: name, Password: "pw"})
			if err != nil {
				t.Fatalf("Signup(%s) failed: %v", name, err)
			}
			if user.ID <= previous {
				t.Fatalf("expected increasing ids, got %d after %d", user.ID, previous)
			}
			previous = user.ID
		}
	})

	t.Run("rejects duplicates and leaves the store unchanged", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, hasher, time.Now)
		if _, err := svc.Signup(context.Background(), SignupParams{Username: "testuser", Password: "first"}); err != nil {
			t.Fatalf("Signup failed: %v", err)
		}
		original := repo.credentials["testuser"].PasswordHash

		_, err := svc.Signup(context.Background(), SignupParams{Username: "testuser", Password: "second"})
		if !errors.Is(err, ErrDuplicateUser) {
			t.Fatalf("expected ErrDuplicateUser, got %v", err)
		}
		if len(repo.credentials) != 1 || repo.credentials["testuser"].PasswordHash != original {
			t.Fatalf("store changed after duplicate signup")
		}
	})

	t.Run("validates required fields", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepositoryStub()
		svc := NewUserService(repo, hasher, time.Now)

		_, err := svc.Signup(context.Background(), SignupParams{Username: "   ", Password: ""})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["username"]; !ok {
			t.Fatalf("expected username error, got %#v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["password"]; !ok {
			t.Fatalf("expected password error, got %#v", vErr.FieldErrors)
		}
		if len(repo.credentials) != 0 {
			t.Fatalf("store changed after invalid signup")
		}
	})

	t.Run("propagates hashing failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("no entropy")
		svc := NewUserService(newUserRepositoryStub(), func(string) (string, error) { return "", expected }, time.Now)
		if _, err := svc.Signup(context.Background(), SignupParams{Username: "u", Password: "p"}); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestUserService_GetUser(t *testing.T) {
	t.Parallel()

	repo := newUserRepositoryStub()
	svc := NewUserService(repo, NewPasswordHasher(testArgon2idParams), time.Now)
	created, err := svc.Signup(context.Background(), SignupParams{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	user, err := svc.GetUser(context.Background(), Principal{UserID: created.ID})
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected user %#v", user)
	}

	if _, err := svc.GetUser(context.Background(), Principal{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// userRepositoryStub keeps users in memory keyed by username.
type userRepositoryStub struct {
	mu          sync.Mutex
	credentials map[string]UserCredentials
	nextID      int64
}

func newUserRepositoryStub() *userRepositoryStub {
	return &userRepositoryStub{credentials: make(map[string]UserCredentials)}
}

func (s *userRepositoryStub) CreateUser(ctx context.Context, creds UserCredentials) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[creds.User.Username]; ok {
		return User{}, ErrDuplicateUser
	}
	s.nextID++
	creds.User.ID = s.nextID
	s.credentials[creds.User.Username] = creds
	return creds.User, nil
}

func (s *userRepositoryStub) GetUser(ctx context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, creds := range s.credentials {
		if creds.User.ID == id {
			return creds.User, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *userRepositoryStub) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]User, 0, len(s.credentials))
	for _, creds := range s.credentials {
		users = append(users, creds.User)
	}
	return users, nil
}
