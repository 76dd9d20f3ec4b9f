// Package history reconciles server-side generation history into the
// local store and keeps locally tracked jobs consistent with the server.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/generation/metrics"
	"github.com/vietddude/genflow/internal/infra/storage"
)

// reconcileConcurrency bounds parallel status fetches during one sync pass.
const reconcileConcurrency = 4

// Fetcher exposes the remote reads the syncer needs. *api.Client
// satisfies it.
type Fetcher interface {
	History(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
	Status(ctx context.Context, remoteID string) (*domain.StatusSnapshot, error)
}

// Config configures the sync loop.
type Config struct {
	Interval time.Duration // time between sync passes
	Limit    int           // max records pulled per pass
}

// DefaultConfig returns sync defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Limit:    50,
	}
}

// Stats tracks sync outcomes.
type Stats struct {
	Passes     int
	Synced     int
	Reconciled int
	LastSync   time.Time
	LastError  string
}

// Syncer periodically pulls the server's history list into local storage
// and reconciles active jobs whose poll loop is no longer running (for
// example after a restart).
type Syncer struct {
	config  Config
	fetcher Fetcher
	jobs    storage.JobRepository
	history storage.HistoryRepository
	logger  *slog.Logger

	mu    sync.RWMutex
	stats Stats
}

// NewSyncer creates a syncer. jobs may be nil when only history records
// are persisted.
func NewSyncer(config Config, fetcher Fetcher, jobs storage.JobRepository, history storage.HistoryRepository, logger *slog.Logger) *Syncer {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	return &Syncer{
		config:  config,
		fetcher: fetcher,
		jobs:    jobs,
		history: history,
		logger:  logger.With("component", "history_syncer"),
	}
}

// Run executes sync passes until the context is cancelled. One pass runs
// immediately on start so a restart recovers state without waiting a
// full interval.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.SyncOnce(ctx); err != nil {
		s.logger.Warn("Initial history sync failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				s.logger.Warn("History sync failed", "error", err)
			}
		}
	}
}

// SyncOnce performs a single sync pass: pull recent history, then
// reconcile any active jobs against the server's current status.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	synced, err := s.pullHistory(ctx)
	if err != nil {
		s.recordError(err)
		return err
	}

	reconciled, err := s.reconcileActive(ctx)
	if err != nil {
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	s.stats.Passes++
	s.stats.Synced += synced
	s.stats.Reconciled += reconciled
	s.stats.LastSync = time.Now()
	s.stats.LastError = ""
	s.mu.Unlock()

	if synced > 0 || reconciled > 0 {
		s.logger.Debug("History sync complete", "synced", synced, "reconciled", reconciled)
	}
	return nil
}

// GetStats returns a copy of the sync statistics.
func (s *Syncer) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Syncer) pullHistory(ctx context.Context) (int, error) {
	recs, err := s.fetcher.History(ctx, s.config.Limit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch history: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	batch := make([]*domain.HistoryRecord, len(recs))
	for i := range recs {
		batch[i] = &recs[i]
	}
	if err := s.history.UpsertBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("failed to store history: %w", err)
	}

	metrics.HistorySynced.Add(float64(len(batch)))
	return len(batch), nil
}

func (s *Syncer) reconcileActive(ctx context.Context) (int, error) {
	if s.jobs == nil {
		return 0, nil
	}

	active, err := s.jobs.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active jobs: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}

	var (
		mu      sync.Mutex
		updated int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)

	for _, job := range active {
		if job.RemoteID == "" {
			continue
		}
		job := job
		g.Go(func() error {
			snap, err := s.fetcher.Status(gctx, job.RemoteID)
			if err != nil {
				// One stale job must not block the rest of the pass.
				s.logger.Warn("Reconcile status fetch failed",
					"job_id", job.ID, "remote_id", job.RemoteID, "error", err)
				return nil
			}

			if snap.Status == job.Status && snap.Progress == job.Progress {
				return nil
			}

			if err := s.jobs.UpdateStatus(gctx, job.ID, snap.Status, snap.Progress, snap.Message); err != nil {
				return fmt.Errorf("failed to update job %s: %w", job.ID, err)
			}

			if snap.Status.Terminal() {
				rec := recordFromJob(job, snap)
				if err := s.history.Upsert(gctx, rec); err != nil {
					return fmt.Errorf("failed to upsert history for %s: %w", job.RemoteID, err)
				}
			}

			mu.Lock()
			updated++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return updated, err
	}
	return updated, nil
}

func recordFromJob(job *domain.Job, snap *domain.StatusSnapshot) *domain.HistoryRecord {
	completedAt := snap.CompletedAt
	if completedAt.IsZero() && snap.Status.Terminal() {
		completedAt = time.Now().UTC()
	}
	return &domain.HistoryRecord{
		RemoteID:    job.RemoteID,
		Model:       job.Model,
		Prompt:      job.Prompt,
		Status:      snap.Status,
		ArtifactURL: snap.ArtifactURL,
		CreatedAt:   job.CreatedAt,
		CompletedAt: completedAt,
	}
}

func (s *Syncer) recordError(err error) {
	s.mu.Lock()
	s.stats.LastError = err.Error()
	s.mu.Unlock()
}
