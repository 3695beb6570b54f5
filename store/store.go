// Package store persists the expense ledger in a local SQLite database.
// It owns the schema, migrations, and every read and write path; other
// packages hold entities by value and never touch SQL directly.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/c360studio/expense-tracker/config"
)

// Store is the single handle to the SQLite database. SQLite is a
// single-writer engine; the connection pool is pinned to one connection
// so writers serialize instead of racing on SQLITE_BUSY.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens the database at path, creating it and applying pending
// migrations as needed. An empty path falls back to the EXPENSE_TRACKER_DB
// environment variable.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = os.Getenv(config.EnvDBPath)
	}
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:     db,
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// nowUTC is the canonical timestamp for created_at/updated_at columns.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime reads a stored timestamp.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
