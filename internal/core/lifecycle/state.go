package lifecycle

import (
	"errors"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// State is an alias for domain.JobStatus for internal use.
type State = domain.JobStatus

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
// A fast job may report completed before a processing observation ever
// lands, so pending admits terminal states directly.
var ValidTransitions = map[State][]State{
	domain.JobStatusPending: {
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
		domain.JobStatusCancelled,
	},
	domain.JobStatusProcessing: {
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
		domain.JobStatusCancelled,
	},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.JobStatusPending:
		return "Pending - accepted by the server, not yet started"
	case domain.JobStatusProcessing:
		return "Processing - generation in progress"
	case domain.JobStatusCompleted:
		return "Completed - artifact ready"
	case domain.JobStatusFailed:
		return "Failed - generation errored server-side"
	case domain.JobStatusCancelled:
		return "Cancelled - withdrawn by the caller"
	default:
		return "Unknown state"
	}
}
