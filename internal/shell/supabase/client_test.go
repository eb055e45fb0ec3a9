package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestling/nestling/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL: server.URL,
		APIKey:  "service-key",
	}, slog.Default())
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://proj.supabase.co"}, nil)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.logger)
}

func TestClient_User(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{"id": "user-123"})
	})

	id, err := client.User(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "user-123", id)
}

func TestClient_User_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.User(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_User_NotConfigured(t *testing.T) {
	client := NewClient(Config{}, nil)
	_, err := client.User(context.Background(), "token")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_LatestBabyID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/babies", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "id", q.Get("select"))
		assert.Equal(t, "eq.user-123", q.Get("user_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "1", q.Get("limit"))

		json.NewEncoder(w).Encode([]map[string]string{{"id": "baby-1"}})
	})

	id, err := client.LatestBabyID(context.Background(), "tok", "user-123")
	require.NoError(t, err)
	assert.Equal(t, "baby-1", id)
}

func TestClient_LatestBabyID_NoBabies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{})
	})

	id, err := client.LatestBabyID(context.Background(), "tok", "user-123")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestClient_RecentLogs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/logs", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.baby-1", q.Get("baby_id"))
		assert.Equal(t, "created_at.desc", q.Get("order"))
		assert.Equal(t, "50", q.Get("limit"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "log-1", "baby_id": "baby-1", "type": "sleep", "data": map[string]string{"notes": "nap"}},
		})
	})

	entries, err := client.RecentLogs(context.Background(), "tok", "baby-1", 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sleep", entries[0].Type)
	assert.Equal(t, "nap", entries[0].DecodeData().Notes)
}

func TestClient_RecentLogs_DefaultLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	_, err := client.RecentLogs(context.Background(), "tok", "baby-1", 0)
	require.NoError(t, err)
}

func TestClient_LatestReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/reports", r.URL.Path)
		assert.Equal(t, "eq.end_of_day_summary", r.URL.Query().Get("report_type"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "rep-1", "baby_id": "baby-1", "report_type": "end_of_day_summary"},
		})
	})

	report, err := client.LatestReport(context.Background(), "tok", "baby-1", "end_of_day_summary")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "rep-1", report.ID)
}

func TestClient_LatestReport_None(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	})

	report, err := client.LatestReport(context.Background(), "tok", "baby-1", "")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestClient_SessionHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/chat_history", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "role,message_content", q.Get("select"))
		assert.Equal(t, "eq.sess-1", q.Get("session_id"))
		assert.Equal(t, "created_at.asc", q.Get("order"))

		json.NewEncoder(w).Encode([]map[string]string{
			{"role": "human", "message_content": "hi"},
			{"role": "ai", "message_content": "hello"},
		})
	})

	history, err := client.SessionHistory(context.Background(), "tok", "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleHuman, history[0].Role)
	assert.Equal(t, "hello", history[1].Content)
}

func TestClient_AppendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/chat_history", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-1", body["session_id"])
		assert.Equal(t, "human", body["role"])
		assert.Equal(t, "hi", body["message_content"])
		assert.Equal(t, "user-123", body["user_id"])

		w.WriteHeader(http.StatusCreated)
	})

	err := client.AppendMessage(context.Background(), "tok", domain.ChatMessage{
		SessionID: "sess-1",
		UserID:    "user-123",
		Role:      domain.RoleHuman,
		Content:   "hi",
	})
	assert.NoError(t, err)
}

func TestClient_AppendMessage_Invalid(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost", APIKey: "k"}, nil)

	err := client.AppendMessage(context.Background(), "tok", domain.ChatMessage{
		Role:    domain.RoleHuman,
		Content: "hi",
	})
	assert.ErrorIs(t, err, domain.ErrEmptySessionID)
}

func TestClient_Get_UnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := client.SessionHistory(context.Background(), "tok", "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
