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

// HistoryRepo implements storage.HistoryRepository using PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new PostgreSQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

type historyRow struct {
	RemoteID        string         `db:"remote_id"`
	Model           string         `db:"model"`
	Prompt          string         `db:"prompt"`
	Status          string         `db:"status"`
	ArtifactURL     sql.NullString `db:"artifact_url"`
	DurationSeconds int            `db:"duration_seconds"`
	Resolution      sql.NullString `db:"resolution"`
	CostEstimate    float64        `db:"cost_estimate"`
	CreatedAt       time.Time      `db:"created_at"`
	CompletedAt     sql.NullTime   `db:"completed_at"`
}

func (r historyRow) toDomain() *domain.HistoryRecord {
	rec := &domain.HistoryRecord{
		RemoteID:        r.RemoteID,
		Model:           domain.Model(r.Model),
		Prompt:          r.Prompt,
		Status:          domain.JobStatus(r.Status),
		DurationSeconds: r.DurationSeconds,
		CostEstimate:    r.CostEstimate,
		CreatedAt:       r.CreatedAt,
	}
	if r.ArtifactURL.Valid {
		rec.ArtifactURL = r.ArtifactURL.String
	}
	if r.Resolution.Valid {
		rec.Resolution = r.Resolution.String
	}
	if r.CompletedAt.Valid {
		rec.CompletedAt = r.CompletedAt.Time
	}
	return rec
}

const upsertHistoryQuery = `
	INSERT INTO generation_history (remote_id, model, prompt, status, artifact_url, duration_seconds, resolution, cost_estimate, created_at, completed_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10)
	ON CONFLICT (remote_id) DO UPDATE SET
		status = EXCLUDED.status,
		artifact_url = EXCLUDED.artifact_url,
		cost_estimate = EXCLUDED.cost_estimate,
		completed_at = EXCLUDED.completed_at`

func historyArgs(rec *domain.HistoryRecord) []any {
	var completedAt sql.NullTime
	if !rec.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: rec.CompletedAt, Valid: true}
	}
	return []any{
		rec.RemoteID, string(rec.Model), rec.Prompt, string(rec.Status),
		rec.ArtifactURL, rec.DurationSeconds, rec.Resolution, rec.CostEstimate,
		rec.CreatedAt, completedAt,
	}
}

// Upsert saves a record keyed by its remote ID.
func (r *HistoryRepo) Upsert(ctx context.Context, rec *domain.HistoryRecord) error {
	if _, err := r.db.ExecContext(ctx, upsertHistoryQuery, historyArgs(rec)...); err != nil {
		return fmt.Errorf("failed to upsert history record: %w", err)
	}
	return nil
}

// UpsertBatch saves multiple records in one transaction.
func (r *HistoryRepo) UpsertBatch(ctx context.Context, recs []*domain.HistoryRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, upsertHistoryQuery, historyArgs(rec)...); err != nil {
			return fmt.Errorf("failed to upsert history record %s: %w", rec.RemoteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history batch: %w", err)
	}
	return nil
}

// GetByRemoteID retrieves a record by the server-side task id.
func (r *HistoryRepo) GetByRemoteID(ctx context.Context, remoteID string) (*domain.HistoryRecord, error) {
	var row historyRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM generation_history WHERE remote_id = $1`, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	return row.toDomain(), nil
}

// List retrieves records newest-first.
func (r *HistoryRepo) List(ctx context.Context, limit int) ([]*domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []historyRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM generation_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	recs := make([]*domain.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toDomain())
	}
	return recs, nil
}

// DeleteOlderThan deletes terminal records created before cutoff.
func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM generation_history
		 WHERE created_at < $1 AND status IN ('completed', 'failed', 'cancelled')`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}
