// Package workers contains the service's background loops.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/nestling/nestling/internal/shell/store"
)

// =============================================================================
// History Pruner
// =============================================================================

// Pruner periodically deletes chat history past its retention window.
// It is only wired for local storage backends; hosted deployments prune
// via database policies.
type Pruner struct {
	store    store.Pruner
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PrunerConfig holds configuration for the pruner.
type PrunerConfig struct {
	Store    store.Pruner
	Interval time.Duration
	MaxAge   time.Duration
	Logger   *slog.Logger
}

// NewPruner creates a new history pruner.
func NewPruner(cfg PrunerConfig) *Pruner {
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 90 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pruner{
		store:    cfg.Store,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		logger:   cfg.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the pruning loop. It runs until Stop() is called or the
// context is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	p.logger.Info("starting history pruner",
		"interval", p.interval,
		"max_age", p.maxAge,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(p.doneCh)

	// Sweep once on startup so restarts don't postpone retention.
	p.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("history pruner stopped due to context cancellation")
			return
		case <-p.stopCh:
			p.logger.Info("history pruner stopped")
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

// Stop signals the pruner to stop and waits for it to finish.
func (p *Pruner) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

// sweep deletes one batch of expired history.
func (p *Pruner) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-p.maxAge)

	deleted, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned chat history",
			"deleted", deleted,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
}
