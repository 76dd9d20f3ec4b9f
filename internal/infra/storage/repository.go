package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("record not found")
)

// JobRepository handles local job tracking records.
type JobRepository interface {
	// Save inserts or updates a job
	Save(ctx context.Context, job *domain.Job) error

	// GetByID retrieves a job by local ID
	GetByID(ctx context.Context, id string) (*domain.Job, error)

	// GetByRemoteID retrieves a job by the server-side task id
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Job, error)

	// ListActive retrieves all jobs not yet in a terminal state
	ListActive(ctx context.Context) ([]*domain.Job, error)

	// ListRecent retrieves the most recently updated jobs
	ListRecent(ctx context.Context, limit int) ([]*domain.Job, error)

	// UpdateStatus updates job status, progress, and error message
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, progress float64, errMsg string) error
}

// HistoryRepository handles persisted generation outcomes.
type HistoryRepository interface {
	// Upsert saves a record keyed by its remote ID
	Upsert(ctx context.Context, rec *domain.HistoryRecord) error

	// UpsertBatch saves multiple records
	UpsertBatch(ctx context.Context, recs []*domain.HistoryRecord) error

	// GetByRemoteID retrieves a record by the server-side task id
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.HistoryRecord, error)

	// List retrieves records newest-first
	List(ctx context.Context, limit int) ([]*domain.HistoryRecord, error)

	// DeleteOlderThan deletes terminal records created before cutoff and
	// returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
