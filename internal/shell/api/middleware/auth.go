// Package middleware provides HTTP middleware for the nestling API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nestling/nestling/internal/core/auth"
)

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware extracts the bearer token from the Authorization header
// and stores the auth context in the request context. It never rejects a
// request; pair it with RequireAuth on protected routes.
type AuthMiddleware struct {
	logger *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{logger: logger}
}

// Handler returns the middleware handler function.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.ExtractFromRequest(r)
		r = r.WithContext(auth.WithContext(r.Context(), ctx))
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Require Auth Middleware
// =============================================================================

// RequireAuth is a middleware that requires a bearer token.
// Must be used AFTER AuthMiddleware.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.FromContext(r.Context())

			if !ctx.Authenticated {
				logger.Warn("unauthenticated request to protected endpoint",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				WriteJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// JSON Error Response
// =============================================================================

// ErrorBody is the error object inside an error response.
type ErrorBody struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ErrorResponse is the envelope for all API errors.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteJSONError writes a JSON formatted error response.
func WriteJSONError(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorBody{
			Status: status,
			Title:  title,
			Detail: detail,
		},
	})
}
