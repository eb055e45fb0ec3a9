package store

import (
	"context"

	"github.com/nestling/nestling/internal/core/domain"
	"github.com/nestling/nestling/internal/shell/supabase"
)

// =============================================================================
// Supabase-backed History Store
// =============================================================================

// SupabaseStore implements HistoryStore on the hosted chat_history table.
// All calls run under the end user's token so RLS scopes rows to the user.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore creates a history store backed by a Supabase project.
func NewSupabaseStore(client *supabase.Client) *SupabaseStore {
	return &SupabaseStore{client: client}
}

// History returns the stored messages for a session in insertion order.
func (s *SupabaseStore) History(ctx context.Context, token, sessionID string) ([]domain.ChatMessage, error) {
	return s.client.SessionHistory(ctx, token, sessionID)
}

// Append stores one message.
func (s *SupabaseStore) Append(ctx context.Context, token string, msg domain.ChatMessage) error {
	return s.client.AppendMessage(ctx, token, msg)
}
