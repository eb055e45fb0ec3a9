package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromRequest(t *testing.T) {
	tests := []struct {
		name          string
		header        string
		wantToken     string
		wantAuthState bool
	}{
		{
			name:          "valid bearer token",
			header:        "Bearer abc123",
			wantToken:     "abc123",
			wantAuthState: true,
		},
		{
			name:          "missing header",
			header:        "",
			wantAuthState: false,
		},
		{
			name:          "wrong scheme",
			header:        "Basic dXNlcjpwYXNz",
			wantAuthState: false,
		},
		{
			name:          "bearer with empty token",
			header:        "Bearer ",
			wantAuthState: false,
		},
		{
			name:          "lowercase scheme rejected",
			header:        "bearer abc123",
			wantAuthState: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set(HeaderAuthorization, tt.header)
			}

			ctx := ExtractFromRequest(r)
			assert.Equal(t, tt.wantAuthState, ctx.Authenticated)
			assert.Equal(t, tt.wantToken, ctx.Token)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	authCtx := Context{Token: "tok", UserID: "u1", Authenticated: true}
	ctx := WithContext(context.Background(), authCtx)

	got := FromContext(ctx)
	assert.Equal(t, authCtx, got)
}

func TestFromContext_Missing(t *testing.T) {
	got := FromContext(context.Background())
	assert.False(t, got.Authenticated)
	assert.Empty(t, got.Token)
}
