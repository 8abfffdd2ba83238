package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/eventplanner/internal/persistence"
	"github.com/example/eventplanner/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a migrated SQLite
// database for integration-style tests.
type SQLiteHarness struct {
	Pool     *sqlite.ConnectionPool
	Users    persistence.UserRepository
	Sessions persistence.SessionRepository
}

// NewSQLiteHarness opens a private in-memory database and closes it when the
// test finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()
	return openHarness(tb, sqlite.DefaultDSN)
}

// NewFileSQLiteHarness is NewSQLiteHarness over a temporary database file.
func NewFileSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()
	return openHarness(tb, filepath.Join(tb.TempDir(), "eventplanner.db"))
}

func openHarness(tb testing.TB, dsn string) *SQLiteHarness {
	tb.Helper()

	pool, err := sqlite.Open(context.Background(), dsn)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	return &SQLiteHarness{
		Pool:     pool,
		Users:    sqlite.NewUserRepository(pool),
		Sessions: sqlite.NewSessionRepository(pool),
	}
}
