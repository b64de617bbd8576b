package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the session database at dbPath.
// Use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			host        TEXT NOT NULL UNIQUE,
			state_json  TEXT NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the session for its host.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	stamp(sess)

	stateJSON, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}

	query := `
		INSERT INTO sessions (id, host, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			state_json = excluded.state_json,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.Host,
		string(stateJSON),
		sess.CreatedAt.Format(time.RFC3339),
		sess.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("session: save state: %w", err)
	}
	return nil
}

// Load retrieves the session for the given host.
// Returns (nil, nil) if no session is stored.
func (s *SQLiteStore) Load(ctx context.Context, host string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT state_json FROM sessions WHERE host = ?`, host)

	var stateJSON string
	if err := row.Scan(&stateJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("session: scan row: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(stateJSON), &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal state: %w", err)
	}
	return &sess, nil
}

// Delete removes the session for the given host.
func (s *SQLiteStore) Delete(ctx context.Context, host string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE host = ?`, host)
	if err != nil {
		return fmt.Errorf("session: delete session: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
