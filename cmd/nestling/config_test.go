package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NESTLING_SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("NESTLING_SUPABASE_KEY", "anon-key")
	t.Setenv("NESTLING_LLM_API_KEY", "gemini-key")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 0.6, cfg.LLM.Temperature)
	assert.Equal(t, 350, cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 20, cfg.Chat.HistoryLimit)
	assert.Equal(t, 100, cfg.Chat.LogLimit)
	assert.Equal(t, "supabase", cfg.Storage.Backend)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 1.0, cfg.RateLimit.RPS)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.False(t, cfg.Retention.Enabled)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.MaxAge)
}

func TestLoadConfig_FromFile(t *testing.T) {
	setRequiredEnv(t)

	content := `
server:
  port: 9090
log:
  level: debug
  format: text
llm:
  provider: noop
chat:
  history_limit: 8
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "noop", cfg.LLM.Provider)
	assert.Equal(t, 8, cfg.Chat.HistoryLimit)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NESTLING_SERVER_PORT", "3000")
	t.Setenv("NESTLING_LOG_LEVEL", "debug")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_BarePortOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Supabase: SupabaseConfig{URL: "https://proj.supabase.co", Key: "anon"},
			LLM:      LLMConfig{Provider: "gemini", APIKey: "key"},
			Storage:  StorageConfig{Backend: "supabase", DSN: "./data/nestling.db"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("supabase backend needs url and key", func(t *testing.T) {
		cfg := base()
		cfg.Supabase.Key = ""
		assert.ErrorContains(t, cfg.Validate(), "supabase.url and supabase.key")
	})

	t.Run("sqlite backend needs dsn", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "sqlite"
		cfg.Storage.DSN = ""
		assert.ErrorContains(t, cfg.Validate(), "storage.dsn")
	})

	t.Run("sqlite backend works without supabase", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "sqlite"
		cfg.Supabase = SupabaseConfig{}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "dynamo"
		assert.ErrorContains(t, cfg.Validate(), "unknown storage.backend")
	})

	t.Run("gemini needs api key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.APIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "llm.api_key")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.LLM.Provider = "openai"
		assert.ErrorContains(t, cfg.Validate(), "unknown llm.provider")
	})

	t.Run("retention requires sqlite", func(t *testing.T) {
		cfg := base()
		cfg.Retention.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "retention.enabled")
	})
}

func TestSetupLogger(t *testing.T) {
	levels := []string{"debug", "info", "warn", "warning", "error", "unknown"}
	for _, level := range levels {
		logger := SetupLogger(&Config{Log: LogConfig{Level: level, Format: "text"}})
		assert.NotNil(t, logger, level)
	}

	logger := SetupLogger(&Config{Log: LogConfig{Level: "info", Format: "json"}})
	assert.NotNil(t, logger)
}
