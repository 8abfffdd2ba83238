package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion is stored in PRAGMA user_version once the statements below
// have been applied.
const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT    NOT NULL UNIQUE,
		password_hash TEXT    NOT NULL,
		created_at    TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT    PRIMARY KEY,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		token      TEXT    NOT NULL UNIQUE,
		expires_at TEXT    NOT NULL,
		created_at TEXT    NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
}

// Migrate enables foreign keys and creates the tables when the database is
// older than schemaVersion. It is safe to call repeatedly.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	var current int
	if err := cp.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	return cp.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite: apply schema: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("sqlite: record schema version: %w", err)
		}
		return nil
	})
}

// SchemaVersion reports the applied schema version.
func (cp *ConnectionPool) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := cp.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlite: read schema version: %w", err)
	}
	return version, nil
}
