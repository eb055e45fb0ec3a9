// Package auth provides bearer-token authentication context for requests.
// Identity is delegated entirely to Supabase GoTrue: the API never mints or
// validates tokens itself, it forwards the caller's token so row level
// security applies to every downstream query.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// Context represents the authentication context for a request.
type Context struct {
	// Token is the caller's raw bearer token, forwarded verbatim to
	// Supabase so RLS policies evaluate as the end user.
	Token string

	// UserID is the Supabase user id, resolved lazily by callers that
	// need it. Empty until resolved.
	UserID string

	// Authenticated indicates whether a bearer token was presented.
	Authenticated bool
}

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderAuthorization carries the user's bearer token.
	HeaderAuthorization = "Authorization"

	bearerPrefix = "Bearer "
)

// =============================================================================
// Context Extraction
// =============================================================================

// ExtractFromRequest extracts auth context from the Authorization header.
// A missing or malformed header yields an unauthenticated context.
func ExtractFromRequest(r *http.Request) Context {
	header := r.Header.Get(HeaderAuthorization)
	if header == "" {
		return Context{}
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return Context{}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return Context{}
	}
	return Context{
		Token:         token,
		Authenticated: true,
	}
}

// WithContext stores the auth context in the given context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the given context.
// Returns an unauthenticated context if none is stored.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{}
}
