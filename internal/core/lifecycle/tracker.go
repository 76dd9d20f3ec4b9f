package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

var (
	// ErrJobNotFound is returned when a job isn't tracked.
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyRegistered is returned when registering a duplicate job ID.
	ErrAlreadyRegistered = errors.New("job already registered")
)

// Tracker handles job state with state machine enforcement.
type Tracker interface {
	// Register starts tracking a newly submitted job.
	Register(job *domain.Job) error

	// Get retrieves a tracked job by local ID.
	Get(jobID string) (*domain.Job, error)

	// Transition moves a job to a new state (validates transition).
	Transition(jobID string, newState State, reason string) error

	// Progress records the latest observed progress percentage.
	Progress(jobID string, progress float64) error

	// Active returns all tracked jobs not yet in a terminal state.
	Active() []*domain.Job

	// Release stops tracking a terminal job.
	Release(jobID string) error

	// GetMetrics returns performance metrics for a model family.
	GetMetrics(model domain.Model) Metrics

	// SetStateChangeCallback registers callback for state changes.
	SetStateChangeCallback(fn func(jobID string, t Transition))
}

// DefaultTracker implements Tracker with state machine enforcement.
type DefaultTracker struct {
	mu            sync.RWMutex
	jobs          map[string]*domain.Job
	stateCallback func(string, Transition)
	collectors    map[domain.Model]*MetricsCollector
}

// Register starts tracking a newly submitted job.
func (t *DefaultTracker) Register(job *domain.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, job.ID)
	}

	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}

	t.jobs[job.ID] = job

	if _, ok := t.collectors[job.Model]; !ok {
		t.collectors[job.Model] = NewMetricsCollector(100)
	}

	return nil
}

// Get retrieves a tracked job by local ID. The returned value is a copy;
// mutate through Transition/Progress only.
func (t *DefaultTracker) Get(jobID string) (*domain.Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	copied := *job
	return &copied, nil
}

// Transition moves a job to a new state.
func (t *DefaultTracker) Transition(jobID string, newState State, reason string) error {
	t.mu.Lock()

	job, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	// Repeated observations of the same state are idempotent, not errors:
	// the poller reports whatever the server says on every tick.
	if job.Status == newState {
		t.mu.Unlock()
		return nil
	}

	if !CanTransition(job.Status, newState) {
		t.mu.Unlock()
		return fmt.Errorf(
			"%w: cannot transition from %s to %s",
			ErrInvalidTransition,
			job.Status,
			newState,
		)
	}

	transition := NewTransition(job.Status, newState, reason)

	job.Status = newState
	job.UpdatedAt = transition.Timestamp
	if newState.Terminal() {
		job.CompletedAt = transition.Timestamp
		if newState == domain.JobStatusCompleted {
			job.Progress = 100
		}
	}
	if newState == domain.JobStatusFailed || newState == domain.JobStatusCancelled {
		if reason != "" {
			job.Error = reason
		}
	}

	if collector, ok := t.collectors[job.Model]; ok {
		collector.RecordTransition(transition)
		if newState == domain.JobStatusCompleted {
			collector.RecordRun(job.CompletedAt.Sub(job.CreatedAt))
		}
	}

	callback := t.stateCallback
	t.mu.Unlock()

	if callback != nil {
		callback(jobID, transition)
	}

	return nil
}

// Progress records the latest observed progress percentage.
func (t *DefaultTracker) Progress(jobID string, progress float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	job.Progress = progress
	job.UpdatedAt = time.Now()

	return nil
}

// Active returns all tracked jobs not yet in a terminal state.
func (t *DefaultTracker) Active() []*domain.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var active []*domain.Job
	for _, job := range t.jobs {
		if !job.Status.Terminal() {
			copied := *job
			active = append(active, &copied)
		}
	}
	return active
}

// Release stops tracking a terminal job.
func (t *DefaultTracker) Release(jobID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("cannot release job %s in non-terminal state %s", jobID, job.Status)
	}

	delete(t.jobs, jobID)
	return nil
}

// GetMetrics returns performance metrics for a model family.
func (t *DefaultTracker) GetMetrics(model domain.Model) Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if collector, ok := t.collectors[model]; ok {
		return collector.GetMetrics()
	}

	return Metrics{}
}

// SetStateChangeCallback registers a callback for state changes.
func (t *DefaultTracker) SetStateChangeCallback(fn func(jobID string, t Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateCallback = fn
}
