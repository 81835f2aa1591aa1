package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// DB is a device-local SQLite database holding progress entries for any
// number of scopes (one per user) in a single key/value table.
type DB struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn and creates the table if needed.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; keep one connection so in-memory DSNs
	// see a single database.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS progress_entries (
		scope      TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (scope, key)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create progress table: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Storage returns the progress storage for one scope.
func (d *DB) Storage(scope string) *ProgressStorage {
	return &ProgressStorage{db: d.db, scope: scope}
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// ProgressStorage is a scope's view of the progress_entries table.
type ProgressStorage struct {
	db    *sql.DB
	scope string
}

func (s *ProgressStorage) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM progress_entries WHERE scope = ? AND key = ?`, s.scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", key, err)
	}
	return value, true, nil
}

func (s *ProgressStorage) Save(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO progress_entries (scope, key, value, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *ProgressStorage) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM progress_entries WHERE scope = ? AND key = ?`, s.scope, key,
	)
	if err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}
