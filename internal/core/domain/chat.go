// Package domain contains the core entities of the nestling chat service.
package domain

import (
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrEmptyQuestion  = errors.New("question must not be empty")
	ErrInvalidRole    = errors.New("invalid message role")
	ErrEmptySessionID = errors.New("session id must not be empty")
)

// =============================================================================
// Message Roles
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	// RoleHuman marks a message written by the user.
	RoleHuman Role = "human"

	// RoleAI marks a message produced by the model.
	RoleAI Role = "ai"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleHuman || r == RoleAI
}

// =============================================================================
// Chat Message
// =============================================================================

// ChatMessage is a single turn in a conversation session.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"message_content" db:"message_content"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}

// Validate checks that the message can be persisted.
func (m *ChatMessage) Validate() error {
	if m.SessionID == "" {
		return ErrEmptySessionID
	}
	if !m.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// TrimHistory returns the most recent max messages, preserving order.
// Messages with empty content or an unknown role are dropped first, so the
// window always holds max usable turns when enough exist.
func TrimHistory(history []ChatMessage, max int) []ChatMessage {
	if max <= 0 {
		return nil
	}
	usable := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Content == "" || !m.Role.Valid() {
			continue
		}
		usable = append(usable, m)
	}
	if len(usable) > max {
		usable = usable[len(usable)-max:]
	}
	return usable
}
