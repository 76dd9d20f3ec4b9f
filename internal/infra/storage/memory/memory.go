// Package memory provides in-memory repository implementations, used when
// no database URL is configured and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/infra/storage"
)

// JobStore is an in-memory storage.JobRepository.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.Job)}
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	return &c
}

// Save inserts or updates a job.
func (s *JobStore) Save(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetByID retrieves a job by local ID.
func (s *JobStore) GetByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneJob(job), nil
}

// GetByRemoteID retrieves a job by the server-side task id.
func (s *JobStore) GetByRemoteID(_ context.Context, remoteID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		if job.RemoteID == remoteID {
			return cloneJob(job), nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListActive retrieves all jobs not yet in a terminal state.
func (s *JobStore) ListActive(_ context.Context) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*domain.Job
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			active = append(active, cloneJob(job))
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return active, nil
}

// ListRecent retrieves the most recently updated jobs.
func (s *JobStore) ListRecent(_ context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		all = append(all, cloneJob(job))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// UpdateStatus updates job status, progress, and error message.
func (s *JobStore) UpdateStatus(_ context.Context, id string, status domain.JobStatus, progress float64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return storage.ErrNotFound
	}

	now := time.Now().UTC()
	job.Status = status
	job.Progress = progress
	job.Error = errMsg
	job.UpdatedAt = now
	if status.Terminal() && job.CompletedAt.IsZero() {
		job.CompletedAt = now
	}
	return nil
}

// HistoryStore is an in-memory storage.HistoryRepository.
type HistoryStore struct {
	mu   sync.RWMutex
	recs map[string]*domain.HistoryRecord
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{recs: make(map[string]*domain.HistoryRecord)}
}

func cloneRecord(rec *domain.HistoryRecord) *domain.HistoryRecord {
	c := *rec
	return &c
}

// Upsert saves a record keyed by its remote ID.
func (s *HistoryStore) Upsert(_ context.Context, rec *domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.RemoteID] = cloneRecord(rec)
	return nil
}

// UpsertBatch saves multiple records.
func (s *HistoryStore) UpsertBatch(_ context.Context, recs []*domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.recs[rec.RemoteID] = cloneRecord(rec)
	}
	return nil
}

// GetByRemoteID retrieves a record by the server-side task id.
func (s *HistoryStore) GetByRemoteID(_ context.Context, remoteID string) (*domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[remoteID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneRecord(rec), nil
}

// List retrieves records newest-first.
func (s *HistoryStore) List(_ context.Context, limit int) ([]*domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.HistoryRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		all = append(all, cloneRecord(rec))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// DeleteOlderThan deletes terminal records created before cutoff.
func (s *HistoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, rec := range s.recs {
		if rec.CreatedAt.Before(cutoff) && rec.Status.Terminal() {
			delete(s.recs, id)
			deleted++
		}
	}
	return deleted, nil
}
