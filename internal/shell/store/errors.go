// Package store provides persistence for chat history.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a session has no stored messages.
	ErrNotFound = errors.New("session not found")

	// ErrConnectionFailed is returned when the database connection fails.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrMigrationFailed is returned when database migration fails.
	ErrMigrationFailed = errors.New("database migration failed")

	// ErrInvalidMessage is returned when a message fails validation.
	ErrInvalidMessage = errors.New("invalid chat message")
)

// StoreError wraps errors with additional context.
type StoreError struct {
	Op        string // Operation that failed (e.g. "Append")
	SessionID string // Session id if applicable
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s session %s: %s", e.Op, e.SessionID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, sessionID, message string, err error) *StoreError {
	return &StoreError{
		Op:        op,
		SessionID: sessionID,
		Message:   message,
		Err:       err,
	}
}
