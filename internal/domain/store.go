package domain

import "context"

// SessionStore defines the interface for session persistence.
// This interface lives in domain so the controller can depend on it
// without knowing the backing store.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	LatestSession(ctx context.Context, planID int64) (*Session, error)
	UpdateSession(ctx context.Context, sess *Session) error
	DeleteSession(ctx context.Context, id string) error
}

// TurnStore defines the interface for conversation-log persistence.
// The log is append-only; DeleteTurns exists for full session reset only.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn *Turn) error
	GetTurns(ctx context.Context, sessionID string) ([]*Turn, error)
	DeleteTurns(ctx context.Context, sessionID string) error
}

// Store combines session and turn storage.
type Store interface {
	SessionStore
	TurnStore
	Close() error
}
