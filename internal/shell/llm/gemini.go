package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nestling/nestling/internal/core/domain"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNoCandidates is returned when the model responds without any
	// usable candidate (safety block, empty completion).
	ErrNoCandidates = errors.New("model returned no candidates")

	// ErrMissingAPIKey is returned when the client is built without a key.
	ErrMissingAPIKey = errors.New("gemini api key is required")
)

// =============================================================================
// Gemini Client
// =============================================================================

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	Model           string  // e.g. "gemini-2.5-flash"
	Temperature     float64 // sampling temperature
	MaxOutputTokens int
	BaseURL         string // override for tests; defaults to the public API
	Timeout         time.Duration
}

// GeminiClient calls the generativelanguage generateContent REST API.
type GeminiClient struct {
	cfg        GeminiConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// =============================================================================
// Wire Types
// =============================================================================

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// Generate
// =============================================================================

// Generate sends the conversation to the model and returns the answer text.
// History roles map human to "user" and ai to "model".
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := "user"
		if msg.Role == domain.RoleAI {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: req.Question}},
	})

	payload := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("model error %d: %s", result.Error.Code, result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}

	answer := ""
	for _, part := range result.Candidates[0].Content.Parts {
		answer += part.Text
	}
	if answer == "" {
		return "", ErrNoCandidates
	}

	c.logger.Debug("model call complete",
		"model", c.cfg.Model,
		"duration", time.Since(start),
		"finish_reason", result.Candidates[0].FinishReason,
	)
	return answer, nil
}
