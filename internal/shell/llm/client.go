// Package llm provides the model client used to generate chat answers.
package llm

import (
	"context"
	"log/slog"

	"github.com/nestling/nestling/internal/core/domain"
)

// =============================================================================
// Client Interface
// =============================================================================

// GenerateRequest is one completion request: a system prompt, the trimmed
// conversation history and the user's new question.
type GenerateRequest struct {
	System   string
	History  []domain.ChatMessage
	Question string
}

// Client generates an answer for a chat turn.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// =============================================================================
// No-op Client
// =============================================================================

// NoopClient is a client that returns a fixed answer without calling any
// model. Used in local development and tests.
type NoopClient struct {
	answer string
	logger *slog.Logger
}

// NewNoopClient creates a no-op client. An empty answer gets a default.
func NewNoopClient(answer string, logger *slog.Logger) *NoopClient {
	if answer == "" {
		answer = "(model disabled)"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopClient{answer: answer, logger: logger}
}

// Generate returns the configured fixed answer.
func (c *NoopClient) Generate(_ context.Context, req GenerateRequest) (string, error) {
	c.logger.Debug("noop model call",
		"history_len", len(req.History),
		"question_len", len(req.Question),
	)
	return c.answer, nil
}
