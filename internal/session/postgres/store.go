package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabletalk/tabletalk/internal/session"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
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
VALUES ($1, $2, $3)
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
WHERE session_id = $1
ORDER BY seq ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `
SELECT session_id, seq, role, content, created_at
FROM (
	SELECT session_id, seq, role, content, created_at
	FROM session_turn
	WHERE session_id = $1
	ORDER BY seq DESC
	LIMIT $2
) recent
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
