// Package chat orchestrates a chat turn: baby context resolution, memory
// rebuild, model invocation and history persistence.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nestling/nestling/internal/core/domain"
	"github.com/nestling/nestling/internal/core/prompt"
	"github.com/nestling/nestling/internal/shell/llm"
	"github.com/nestling/nestling/internal/shell/metrics"
	"github.com/nestling/nestling/internal/shell/store"
)

// =============================================================================
// Dependencies
// =============================================================================

// IdentitySource resolves a bearer token to a user id.
type IdentitySource interface {
	User(ctx context.Context, token string) (string, error)
}

// ContextSource provides the baby context that grounds answers.
type ContextSource interface {
	LatestBabyID(ctx context.Context, token, userID string) (string, error)
	RecentLogs(ctx context.Context, token, babyID string, limit int) ([]domain.LogEntry, error)
}

// =============================================================================
// Service
// =============================================================================

// Config holds chat service configuration.
type Config struct {
	// HistoryLimit caps the conversation memory sent to the model.
	HistoryLimit int

	// LogLimit caps how many recent activity logs are fetched per turn.
	LogLimit int
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		HistoryLimit: 20,
		LogLimit:     100,
	}
}

// Service answers chat turns.
type Service struct {
	identity IdentitySource
	babies   ContextSource
	history  store.HistoryStore
	model    llm.Client
	pack     prompt.Pack
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a chat service.
func NewService(identity IdentitySource, babies ContextSource, history store.HistoryStore, model llm.Client, pack prompt.Pack, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.LogLimit <= 0 {
		cfg.LogLimit = DefaultConfig().LogLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		identity: identity,
		babies:   babies,
		history:  history,
		model:    model,
		pack:     pack,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// =============================================================================
// Request / Response
// =============================================================================

// Request is one chat turn from the user.
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	BabyID    string `json:"baby_id,omitempty"`
}

// Response is the answer to one chat turn.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// =============================================================================
// Ask
// =============================================================================

// Ask answers one chat turn.
//
// Degradation is deliberate: context resolution and history persistence
// failures are logged and absorbed so the user still gets an answer; only a
// missing question is rejected. A failed model call yields the configured
// fallback answer with a 200, matching the product behaviour.
func (s *Service) Ask(ctx context.Context, token string, req Request) (Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Response{}, domain.ErrEmptyQuestion
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// Identity is best-effort. Without it the turn degrades to general
	// mode and history rows are written without a user id.
	userID := ""
	if s.identity != nil {
		id, err := s.identity.User(ctx, token)
		if err != nil {
			s.logger.Warn("user resolution failed", "error", err)
		} else {
			userID = id
		}
	}

	mode, reportText := s.resolveContext(ctx, token, userID, req.BabyID)

	memory := s.loadMemory(ctx, token, sessionID)

	answer, outcome := s.generate(ctx, s.pack.System(mode, reportText), memory, req.Question)

	s.record(ctx, token, sessionID, userID, req.Question, answer)

	if s.metrics != nil {
		s.metrics.CountChat(string(mode), outcome)
	}

	return Response{
		Response:  answer,
		SessionID: sessionID,
	}, nil
}

// resolveContext picks the baby and renders its recent logs. Any failure or
// absence of data falls back to general mode.
func (s *Service) resolveContext(ctx context.Context, token, userID, babyID string) (prompt.Mode, string) {
	if s.babies == nil {
		return prompt.ModeGeneral, ""
	}

	if babyID == "" && userID != "" {
		id, err := s.babies.LatestBabyID(ctx, token, userID)
		if err != nil {
			s.logger.Warn("baby lookup failed", "error", err)
		} else {
			babyID = id
		}
	}
	if babyID == "" {
		return prompt.ModeGeneral, ""
	}

	entries, err := s.babies.RecentLogs(ctx, token, babyID, s.cfg.LogLimit)
	if err != nil {
		s.logger.Warn("log fetch failed", "baby_id", babyID, "error", err)
		return prompt.ModeGeneral, ""
	}

	reportText := prompt.RenderLogs(entries)
	if strings.TrimSpace(reportText) == "" {
		return prompt.ModeGeneral, ""
	}
	return prompt.ModeContext, reportText
}

// loadMemory rebuilds the trimmed conversation memory for a session.
func (s *Service) loadMemory(ctx context.Context, token, sessionID string) []domain.ChatMessage {
	history, err := s.history.History(ctx, token, sessionID)
	if err != nil {
		s.logger.Warn("history fetch failed", "session_id", sessionID, "error", err)
		return nil
	}
	return domain.TrimHistory(history, s.cfg.HistoryLimit)
}

// generate calls the model, timing the call and substituting the fallback
// answer on failure.
func (s *Service) generate(ctx context.Context, system string, memory []domain.ChatMessage, question string) (answer, outcome string) {
	start := time.Now()
	answer, err := s.model.Generate(ctx, llm.GenerateRequest{
		System:   system,
		History:  memory,
		Question: question,
	})
	if s.metrics != nil {
		s.metrics.ObserveLLM(time.Since(start))
	}
	if err != nil {
		s.logger.Error("model call failed", "error", err)
		return s.pack.Fallback, "fallback"
	}
	return answer, "ok"
}

// record appends the question and answer to the session history.
// Failures are logged and counted, never surfaced.
func (s *Service) record(ctx context.Context, token, sessionID, userID, question, answer string) {
	for _, msg := range []domain.ChatMessage{
		{SessionID: sessionID, UserID: userID, Role: domain.RoleHuman, Content: question},
		{SessionID: sessionID, UserID: userID, Role: domain.RoleAI, Content: answer},
	} {
		if err := s.history.Append(ctx, token, msg); err != nil {
			s.logger.Error("history save failed",
				"session_id", sessionID,
				"role", msg.Role,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.CountHistoryFailure()
			}
		}
	}
}

// =============================================================================
// Session History
// =============================================================================

// SessionMessages returns the stored history for a session.
func (s *Service) SessionMessages(ctx context.Context, token, sessionID string) ([]domain.ChatMessage, error) {
	if sessionID == "" {
		return nil, domain.ErrEmptySessionID
	}
	return s.history.History(ctx, token, sessionID)
}
