// Package lifecycle tracks the state of every generation job the client
// has submitted.
//
// # Purpose
//
// The tracker acts as the client's in-memory source of truth for active
// jobs:
//   - Status: where the job is (pending, processing, terminal)
//   - Progress: last observed completion percentage
//   - Transitions: an auditable record of every state change
//
// # Key Features
//
// State Machine - Only allows valid transitions:
//
//	PENDING → PROCESSING → COMPLETED (valid)
//	COMPLETED → PROCESSING (invalid - terminal states are final)
//
// Cancellation - pending and processing jobs may move to CANCELLED; the
// server never reports that status, it is recorded locally when the
// caller withdraws.
//
// Callbacks - register a state-change callback to mirror transitions into
// storage or logs without coupling the tracker to either.
//
// # Quick Start
//
//	tracker := lifecycle.NewTracker()
//
//	tracker.Register(job)
//	tracker.Transition(job.ID, domain.JobStatusProcessing, "server accepted")
//	tracker.Progress(job.ID, 42.5)
//	tracker.Transition(job.ID, domain.JobStatusCompleted, "poll observed terminal state")
//
//	tracker.SetStateChangeCallback(func(jobID string, t lifecycle.Transition) {
//	    log.Printf("job %s: %s -> %s (%s)", jobID, t.From, t.To, t.Reason)
//	})
//
// # Package Structure
//
//   - state.go   - State machine definitions and valid transitions
//   - tracker.go - Core Tracker implementation
//   - metrics.go - Performance metrics (run durations, state history)
package lifecycle

import "github.com/vietddude/genflow/internal/core/domain"

// State constants re-exported for convenience.
const (
	StatePending    = domain.JobStatusPending
	StateProcessing = domain.JobStatusProcessing
	StateCompleted  = domain.JobStatusCompleted
	StateFailed     = domain.JobStatusFailed
	StateCancelled  = domain.JobStatusCancelled
)

// NewTracker creates a new job lifecycle tracker.
func NewTracker() *DefaultTracker {
	return &DefaultTracker{
		jobs:       make(map[string]*domain.Job),
		collectors: make(map[domain.Model]*MetricsCollector),
	}
}

// NewMetricsCollector creates a new metrics collector with the given window size.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MetricsCollector{
		windowSize:  windowSize,
		runTimes:    make([]runRecord, 0, windowSize),
		transitions: make([]Transition, 0, 10),
	}
}
