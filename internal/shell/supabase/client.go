// Package supabase provides a client for the Supabase REST surface:
// GoTrue for identity and PostgREST for table access.
//
// Every data call is made under the end user's bearer token so the
// project's row level security policies are enforced server-side; the
// service key only identifies the API project (apikey header).
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nestling/nestling/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnauthorized is returned when Supabase rejects the access token.
	ErrUnauthorized = errors.New("supabase rejected the access token")

	// ErrNotConfigured is returned when the client has no base URL or key.
	ErrNotConfigured = errors.New("supabase client is not configured")
)

// =============================================================================
// Client
// =============================================================================

// Client provides methods for interacting with a Supabase project.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds Supabase client configuration.
type Config struct {
	BaseURL string // Project base URL, e.g. "https://abc.supabase.co"
	APIKey  string // Service or anon key; sets the apikey header
	Timeout time.Duration
}

// NewClient creates a new Supabase client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

// =============================================================================
// Identity (GoTrue)
// =============================================================================

type gotrueUser struct {
	ID string `json:"id"`
}

// User resolves the Supabase user id for an access token.
func (c *Client) User(ctx context.Context, token string) (string, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return "", ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var user gotrueUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if user.ID == "" {
		return "", ErrUnauthorized
	}
	return user.ID, nil
}

// =============================================================================
// Babies
// =============================================================================

// LatestBabyID returns the most recently created baby id owned by the user,
// or "" when the user has no babies.
func (c *Client) LatestBabyID(ctx context.Context, token, userID string) (string, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []domain.Baby
	if err := c.get(ctx, token, "babies", q, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

// =============================================================================
// Activity Logs
// =============================================================================

// RecentLogs returns up to limit of the baby's newest activity log entries,
// newest first.
func (c *Client) RecentLogs(ctx context.Context, token, babyID string, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	q := url.Values{}
	q.Set("select", "*")
	q.Set("baby_id", "eq."+babyID)
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []domain.LogEntry
	if err := c.get(ctx, token, "logs", q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestReport returns the newest report of the given type for a baby, or
// nil when none exists. reportType "" matches any type.
func (c *Client) LatestReport(ctx context.Context, token, babyID, reportType string) (*domain.Report, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("baby_id", "eq."+babyID)
	if reportType != "" {
		q.Set("report_type", "eq."+reportType)
	}
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []domain.Report
	if err := c.get(ctx, token, "reports", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// =============================================================================
// Chat History
// =============================================================================

// SessionHistory returns all stored messages for a session in insertion order.
func (c *Client) SessionHistory(ctx context.Context, token, sessionID string) ([]domain.ChatMessage, error) {
	q := url.Values{}
	q.Set("select", "role,message_content")
	q.Set("session_id", "eq."+sessionID)
	q.Set("order", "created_at.asc")

	var rows []domain.ChatMessage
	if err := c.get(ctx, token, "chat_history", q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type chatHistoryInsert struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"message_content"`
	UserID    string `json:"user_id"`
}

// AppendMessage inserts one message into the session's history.
// The message UserID must already be resolved; RLS checks it against the token.
func (c *Client) AppendMessage(ctx context.Context, token string, msg domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(chatHistoryInsert{
		SessionID: msg.SessionID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		UserID:    msg.UserID,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/chat_history", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// =============================================================================
// PostgREST GET helper
// =============================================================================

func (c *Client) get(ctx context.Context, token, table string, q url.Values, dest any) error {
	if c.baseURL == "" || c.apiKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
