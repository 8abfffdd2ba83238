package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/eventplanner/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
	now  func() time.Time
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// CreateUser inserts user and returns it with its assigned id. A taken
// username yields persistence.ErrAlreadyExists and leaves the table unchanged.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	user.CreatedAt = user.CreatedAt.UTC()

	result, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		user.Username, user.PasswordHash, formatTime(user.CreatedAt),
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.User{}, fmt.Errorf("sqlite: read user id: %w", err)
	}
	user.ID = id
	return user, nil
}

// GetUser retrieves a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id int64) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by exact username.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// ListUsers returns every user ordered by id.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user      persistence.User
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt); err != nil {
		return persistence.User{}, mapError(err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return persistence.User{}, err
	}
	user.CreatedAt = t
	return user, nil
}

var _ persistence.UserRepository = (*UserRepository)(nil)
