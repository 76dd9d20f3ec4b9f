package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/genflow/internal/infra/storage"
)

// Pruner deletes old history records based on retention policy.
type Pruner struct {
	retention time.Duration
	history   storage.HistoryRepository
	logger    *slog.Logger
}

// NewPruner creates a new Pruner worker. A retention of 0 disables it.
func NewPruner(retention time.Duration, history storage.HistoryRepository, logger *slog.Logger) *Pruner {
	return &Pruner{
		retention: retention,
		history:   history,
		logger:    logger.With("component", "pruner"),
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	deleted, err := p.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("Failed to prune history", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("Pruned old history records", "deleted", deleted, "cutoff", cutoff)
	}
}
