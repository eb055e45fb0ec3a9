package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestling/nestling/internal/core/auth"
)

func TestAuthMiddleware_ExtractsToken(t *testing.T) {
	var captured auth.Context
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.FromContext(r.Context())
	})

	handler := NewAuthMiddleware(nil).Handler(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, captured.Authenticated)
	assert.Equal(t, "tok-1", captured.Token)
}

func TestAuthMiddleware_PassesUnauthenticated(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.False(t, auth.FromContext(r.Context()).Authenticated)
	})

	handler := NewAuthMiddleware(nil).Handler(next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := NewAuthMiddleware(nil).Handler(RequireAuth(nil)(next))

	t.Run("rejects missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authentication required")
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("passes with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok-1")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
