// Package sqlite backs the session store with an embedded database for
// local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tabletalk/tabletalk/internal/session"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS session_turn (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS session_turn_session_idx ON session_turn (session_id, seq);`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and ensures the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("session dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// The session store is low-traffic; a single connection sidesteps
	// SQLITE_BUSY between concurrent writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure session schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping session db: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, sessionID, role, content string) (session.Turn, error) {
	if sessionID == "" {
		return session.Turn{}, fmt.Errorf("%w: session id is required", session.ErrStore)
	}
	if role != session.RoleUser && role != session.RoleAssistant {
		return session.Turn{}, fmt.Errorf("%w: invalid role %q", session.ErrStore, role)
	}

	query := `
INSERT INTO session_turn (session_id, role, content)
VALUES (?, ?, ?)
RETURNING seq, created_at`

	turn := session.Turn{SessionID: sessionID, Role: role, Content: content}
	if err := s.db.QueryRowContext(ctx, query, sessionID, role, content).Scan(&turn.Seq, &turn.CreatedAt); err != nil {
		return session.Turn{}, fmt.Errorf("%w: append turn: %v", session.ErrStore, err)
	}
	return turn, nil
}

func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]session.Turn, error) {
	query := `
SELECT session_id, seq, role, content, created_at
FROM session_turn
WHERE session_id = ?
ORDER BY seq ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `
SELECT session_id, seq, role, content, created_at
FROM (
	SELECT session_id, seq, role, content, created_at
	FROM session_turn
	WHERE session_id = ?
	ORDER BY seq DESC
	LIMIT ?
)
ORDER BY seq ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", session.ErrStore, err)
	}
	defer func() { _ = rows.Close() }()

	turns := make([]session.Turn, 0)
	for rows.Next() {
		var turn session.Turn
		if err := rows.Scan(&turn.SessionID, &turn.Seq, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan turn: %v", session.ErrStore, err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate turns: %v", session.ErrStore, err)
	}
	return turns, nil
}
