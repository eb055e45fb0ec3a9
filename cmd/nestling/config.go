package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds browser origin configuration.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// SupabaseConfig holds the Supabase project connection.
type SupabaseConfig struct {
	URL     string        `mapstructure:"url"`
	Key     string        `mapstructure:"key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds model configuration.
type LLMConfig struct {
	// Provider selects the model client: "gemini" or "noop".
	Provider string `mapstructure:"provider"`

	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"api_key"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`

	// BaseURL overrides the model endpoint; used in tests.
	BaseURL string `mapstructure:"base_url"`
}

// ChatConfig holds conversation limits and the prompt pack path.
type ChatConfig struct {
	HistoryLimit int    `mapstructure:"history_limit"`
	LogLimit     int    `mapstructure:"log_limit"`
	PromptPack   string `mapstructure:"prompt_pack"`
}

// StorageConfig selects the chat history backend.
type StorageConfig struct {
	// Backend is "supabase" (hosted, RLS enforced) or "sqlite" (local).
	Backend string `mapstructure:"backend"`

	// DSN is the SQLite database path; only used by the sqlite backend.
	DSN string `mapstructure:"dsn"`
}

// RateLimitConfig holds per-caller rate limiting.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

// RetentionConfig holds local history retention; sqlite backend only.
type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cors.origins", []string{"http://localhost:8081"})
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.timeout", "10s")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_output_tokens", 350)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("chat.history_limit", 20)
	v.SetDefault("chat.log_limit", 100)
	v.SetDefault("chat.prompt_pack", "")
	v.SetDefault("storage.backend", "supabase")
	v.SetDefault("storage.dsn", "./data/nestling.db")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("ratelimit.idle_ttl", "10m")
	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.interval", "1h")
	v.SetDefault("retention.max_age", "2160h") // 90 days

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("NESTLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// PaaS platforms inject the listen port as a bare PORT variable.
	if p := os.Getenv("PORT"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			cfg.Server.Port = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key are required when storage.backend=supabase")
		}
	case "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required when storage.backend=sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.backend value: %s", c.Storage.Backend)
	}

	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required when llm.provider=gemini")
		}
	case "noop":
		// no-op
	default:
		return fmt.Errorf("unknown llm.provider value: %s", c.LLM.Provider)
	}

	if c.Retention.Enabled && c.Storage.Backend != "sqlite" {
		return fmt.Errorf("retention.enabled requires storage.backend=sqlite")
	}

	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
