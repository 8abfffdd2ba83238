package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService registers accounts.
type UserService struct {
	users        UserRepository
	hashPassword PasswordHasher
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = NewPasswordHasher(DefaultArgon2idParams)
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hashPassword: hash, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Signup validates the credentials, hashes the password and stores a new
// account. A taken username yields ErrDuplicateUser.
func (s *UserService) Signup(ctx context.Context, params SignupParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Signup", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "signup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	vErr := validateSignup(username, params.Password)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	user, err = s.users.CreateUser(ctx, UserCredentials{
		User:         User{Username: username, CreatedAt: s.now()},
		PasswordHash: hash,
	})
	return
}

// GetUser returns the account behind principal.
func (s *UserService) GetUser(ctx context.Context, principal Principal) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.HasOwner() {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	return s.users.GetUser(ctx, principal.UserID)
}

func validateSignup(username, password string) *ValidationError {
	vErr := &ValidationError{}
	if username == "" {
		vErr.add("username", "username is required")
	}
	if password == "" {
		vErr.add("password", "password is required")
	}
	return vErr
}
