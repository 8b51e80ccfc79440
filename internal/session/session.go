// Package session keeps the append-only, role-tagged turn history that gives
// follow-up questions their context.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrStore = errors.New("session: store failure")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted message of a session. Seq is a store-generated key,
// strictly increasing per session, so two turns written in the same instant
// can never collide.
type Turn struct {
	SessionID string
	Seq       int64
	Role      string
	Content   string
	CreatedAt time.Time
}

type Store interface {
	// Append writes one turn and returns it with its ordering key assigned.
	Append(ctx context.Context, sessionID, role, content string) (Turn, error)
	// History returns a session's turns in chronological order. A positive
	// limit keeps only the most recent turns, still oldest-first.
	History(ctx context.Context, sessionID string, limit int) ([]Turn, error)
}
