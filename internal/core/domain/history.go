package domain

import "time"

// HistoryRecord is a persisted generation outcome shown in the dashboard
// library. Records are server-sourced; the syncer reconciles them into the
// local store.
type HistoryRecord struct {
	RemoteID        string    `json:"task_id" db:"remote_id"`
	Model           Model     `json:"model" db:"model"`
	Prompt          string    `json:"prompt" db:"prompt"`
	Status          JobStatus `json:"status" db:"status"`
	ArtifactURL     string    `json:"video_url,omitempty" db:"artifact_url"`
	DurationSeconds int       `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Resolution      string    `json:"resolution,omitempty" db:"resolution"`
	CostEstimate    float64   `json:"cost_estimate,omitempty" db:"cost_estimate"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	CompletedAt     time.Time `json:"completed_at,omitempty" db:"completed_at"`
}
