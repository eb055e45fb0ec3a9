package store

import (
	"context"
	"time"

	"github.com/nestling/nestling/internal/core/domain"
)

// =============================================================================
// History Store Interface
// =============================================================================

// HistoryStore persists chat messages per session.
//
// token is the caller's bearer token. The Supabase-backed implementation
// forwards it so row level security scopes every read and write to the end
// user; the local SQLite implementation ignores it.
type HistoryStore interface {
	// History returns the stored messages for a session in insertion order.
	// An unknown session yields an empty slice, not an error.
	History(ctx context.Context, token, sessionID string) ([]domain.ChatMessage, error)

	// Append stores one message.
	Append(ctx context.Context, token string, msg domain.ChatMessage) error
}

// =============================================================================
// Pruner Interface
// =============================================================================

// Pruner deletes history past its retention window. Only local backends
// implement it; hosted Supabase retention is handled by database policies.
type Pruner interface {
	// PruneBefore deletes all messages created before cutoff and returns
	// the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
