package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nestling/nestling/internal/core/prompt"
	"github.com/nestling/nestling/internal/core/ratelimit"
	"github.com/nestling/nestling/internal/shell/api"
	"github.com/nestling/nestling/internal/shell/chat"
	"github.com/nestling/nestling/internal/shell/llm"
	"github.com/nestling/nestling/internal/shell/metrics"
	"github.com/nestling/nestling/internal/shell/store"
	"github.com/nestling/nestling/internal/shell/supabase"
	"github.com/nestling/nestling/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitLLMError        = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the nestling application server.
type Server struct {
	config     *Config
	httpServer *http.Server
	sqlite     *store.SQLiteStore
	pruner     *workers.Pruner
	logger     *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Prompt pack
	pack := prompt.DefaultPack()
	if cfg.Chat.PromptPack != "" {
		loaded, err := prompt.LoadPack(cfg.Chat.PromptPack)
		if err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitConfigError,
			}
		}
		pack = loaded
		logger.Info("loaded prompt pack", "path", cfg.Chat.PromptPack)
	}

	// Supabase client (identity + baby context + hosted history)
	var supaClient *supabase.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.Key != "" {
		supaClient = supabase.NewClient(supabase.Config{
			BaseURL: cfg.Supabase.URL,
			APIKey:  cfg.Supabase.Key,
			Timeout: cfg.Supabase.Timeout,
		}, logger)
	} else {
		logger.Warn("supabase not configured, running without identity and baby context")
	}

	var identity chat.IdentitySource
	var babies chat.ContextSource
	if supaClient != nil {
		identity = supaClient
		babies = supaClient
	}

	// History backend
	var history store.HistoryStore
	var sqliteStore *store.SQLiteStore
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitDatabaseError,
			}
		}
		sqliteStore = s
		history = s
		logger.Info("using local history store", "dsn", cfg.Storage.DSN)
	default:
		history = store.NewSupabaseStore(supaClient)
		logger.Info("using hosted history store")
	}

	// Model client
	var model llm.Client
	switch cfg.LLM.Provider {
	case "noop":
		model = llm.NewNoopClient("", logger)
		logger.Warn("model disabled, using noop client")
	default:
		gemini, err := llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:          cfg.LLM.APIKey,
			Model:           cfg.LLM.Model,
			Temperature:     cfg.LLM.Temperature,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
			BaseURL:         cfg.LLM.BaseURL,
			Timeout:         cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			if sqliteStore != nil {
				sqliteStore.Close()
			}
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitLLMError,
			}
		}
		model = gemini
		logger.Info("model configured", "model", cfg.LLM.Model)
	}

	// Metrics
	m := metrics.New()

	// Chat service
	chatService := chat.NewService(identity, babies, history, model, pack, chat.Config{
		HistoryLimit: cfg.Chat.HistoryLimit,
		LogLimit:     cfg.Chat.LogLimit,
	}, m, logger)

	// Rate limiter
	var limiter *ratelimit.KeyLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	}

	// Readiness check: verify the local database answers when it is the
	// backend; the hosted backend is probed per-request anyway.
	var readyCheck func(ctx context.Context) error
	if sqliteStore != nil {
		readyCheck = func(ctx context.Context) error {
			_, err := sqliteStore.CountMessages(ctx)
			return err
		}
	}

	handler := api.SetupAPI(api.APIConfig{
		Chat:        chatService,
		Logger:      logger,
		Metrics:     m,
		CORSOrigins: cfg.CORS.Origins,
		RateLimiter: limiter,
		ReadyCheck:  readyCheck,
		ServerURL:   fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// History pruner (sqlite backend only)
	var pruner *workers.Pruner
	if cfg.Retention.Enabled && sqliteStore != nil {
		pruner = workers.NewPruner(workers.PrunerConfig{
			Store:    sqliteStore,
			Interval: cfg.Retention.Interval,
			MaxAge:   cfg.Retention.MaxAge,
			Logger:   logger,
		})
		logger.Info("history retention enabled",
			"interval", cfg.Retention.Interval,
			"max_age", cfg.Retention.MaxAge,
		)
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		sqlite:     sqliteStore,
		pruner:     pruner,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start history pruner in background
	if s.pruner != nil {
		go s.pruner.Start(ctx)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop history pruner
	if s.pruner != nil {
		s.pruner.Stop()
	}

	// Close database
	if s.sqlite != nil {
		if err := s.sqlite.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		}
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
