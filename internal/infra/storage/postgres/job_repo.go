package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/infra/storage"
)

// JobRepo implements storage.JobRepository using PostgreSQL.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new PostgreSQL job repository.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

type jobRow struct {
	ID          string         `db:"id"`
	RemoteID    string         `db:"remote_id"`
	Model       string         `db:"model"`
	Prompt      string         `db:"prompt"`
	Priority    string         `db:"priority"`
	Status      string         `db:"status"`
	Progress    float64        `db:"progress"`
	Error       sql.NullString `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
}

func (r jobRow) toDomain() *domain.Job {
	job := &domain.Job{
		ID:        r.ID,
		RemoteID:  r.RemoteID,
		Model:     domain.Model(r.Model),
		Prompt:    r.Prompt,
		Priority:  domain.Priority(r.Priority),
		Status:    domain.JobStatus(r.Status),
		Progress:  r.Progress,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Error.Valid {
		job.Error = r.Error.String
	}
	if r.CompletedAt.Valid {
		job.CompletedAt = r.CompletedAt.Time
	}
	return job
}

// Save inserts or updates a job.
func (r *JobRepo) Save(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (id, remote_id, model, prompt, priority, status, progress, error, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`

	var completedAt sql.NullTime
	if !job.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: job.CompletedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.RemoteID, string(job.Model), job.Prompt, string(job.Priority),
		string(job.Status), job.Progress, job.Error,
		job.CreatedAt, job.UpdatedAt, completedAt)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by local ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return row.toDomain(), nil
}

// GetByRemoteID retrieves a job by the server-side task id.
func (r *JobRepo) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Job, error) {
	var row jobRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM jobs WHERE remote_id = $1`, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by remote id: %w", err)
	}
	return row.toDomain(), nil
}

// ListActive retrieves all jobs not yet in a terminal state.
func (r *JobRepo) ListActive(ctx context.Context) ([]*domain.Job, error) {
	var rows []jobRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM jobs WHERE status IN ('pending', 'processing') ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toDomain())
	}
	return jobs, nil
}

// ListRecent retrieves the most recently updated jobs.
func (r *JobRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []jobRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM jobs ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toDomain())
	}
	return jobs, nil
}

// UpdateStatus updates job status, progress, and error message.
func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, progress float64, errMsg string) error {
	query := `
		UPDATE jobs SET
			status = $2,
			progress = $3,
			error = NULLIF($4, ''),
			updated_at = $5,
			completed_at = CASE WHEN $2 IN ('completed', 'failed', 'cancelled') THEN $5 ELSE completed_at END
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, string(status), progress, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
