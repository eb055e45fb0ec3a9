// Package api provides the HTTP surface of the nestling chat service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nestling/nestling/internal/core/auth"
	"github.com/nestling/nestling/internal/core/domain"
	"github.com/nestling/nestling/internal/core/ratelimit"
	"github.com/nestling/nestling/internal/shell/api/middleware"
	"github.com/nestling/nestling/internal/shell/api/openapi"
	"github.com/nestling/nestling/internal/shell/chat"
	"github.com/nestling/nestling/internal/shell/metrics"
	"github.com/nestling/nestling/internal/shell/supabase"
)

// =============================================================================
// Handler
// =============================================================================

// APIConfig holds everything the HTTP layer composes.
type APIConfig struct {
	Chat        *chat.Service
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	RateLimiter *ratelimit.KeyLimiter

	// ReadyCheck verifies backing dependencies for the readiness probe.
	// Nil means always ready.
	ReadyCheck func(ctx context.Context) error

	// ServerURL is advertised in the OpenAPI document.
	ServerURL string
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	chat    *chat.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	ready   func(ctx context.Context) error
	spec    *openapi.Generator
}

// NewHandler creates a new API handler.
func NewHandler(cfg APIConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		chat:    cfg.Chat,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		ready:   cfg.ReadyCheck,
		spec:    openapi.NewGenerator(openapi.WithServer(cfg.ServerURL)),
	}
}

// SetupAPI builds the full router for the service.
func SetupAPI(cfg APIConfig) http.Handler {
	h := NewHandler(cfg)

	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.NewAuthMiddleware(cfg.Logger).Handler)

	// Public endpoints
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/openapi.json", h.handleOpenAPI)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		r.Use(middleware.RequireAuth(cfg.Logger))

		r.Post("/chat", h.handleChat)
		r.Get("/sessions/{id}/messages", h.handleSessionMessages)
	})

	return r
}

// =============================================================================
// Root / Probes
// =============================================================================

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the nestling chat API. Use the /api/v1/chat endpoint.",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Error("readiness check failed", "error", err)
			middleware.WriteJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.spec.ServeHTTP(w, r)
}

// =============================================================================
// Chat
// =============================================================================

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	authCtx := auth.FromContext(r.Context())
	resp, err := h.chat.Ask(r.Context(), authCtx.Token, req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	authCtx := auth.FromContext(r.Context())
	messages, err := h.chat.SessionMessages(r.Context(), authCtx.Token, sessionID)
	if err != nil {
		h.writeChatError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, sessionMessagesResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

type sessionMessagesResponse struct {
	SessionID string               `json:"session_id"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// writeChatError maps service errors onto HTTP statuses.
func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		middleware.WriteJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "question must not be empty")
	case errors.Is(err, domain.ErrEmptySessionID):
		middleware.WriteJSONError(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "session id must not be empty")
	case errors.Is(err, supabase.ErrUnauthorized):
		middleware.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized", "Invalid access token")
	default:
		h.logger.Error("request failed", "error", err)
		middleware.WriteJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Something went wrong")
	}
}

// =============================================================================
// JSON Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
