package domain

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"

	// JobStatusCancelled is local only; the server never reports it.
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further status transition can occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is the local tracking record for one generation submission.
type Job struct {
	ID          string    `json:"id"`
	RemoteID    string    `json:"remote_id"`
	Model       Model     `json:"model"`
	Prompt      string    `json:"prompt"`
	Priority    Priority  `json:"priority"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress_percent"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// StatusSnapshot is one observation of a remote job's state.
type StatusSnapshot struct {
	RemoteID    string    `json:"task_id"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress_percent"`
	Message     string    `json:"message,omitempty"`
	ArtifactURL string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}
