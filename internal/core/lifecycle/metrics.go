package lifecycle

import (
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// runRecord holds timing data for a completed job.
type runRecord struct {
	Duration    time.Duration
	CompletedAt time.Time
}

// Metrics holds job performance data for one model family.
type Metrics struct {
	CompletedCount  int
	FailedCount     int
	CancelledCount  int
	AverageRunTime  time.Duration
	LastFailureAt   *time.Time
	StateHistory    []Transition
	JobsPerHour     float64
}

// MetricsCollector tracks job performance over time.
type MetricsCollector struct {
	windowSize  int         // number of completed runs to track
	runTimes    []runRecord // ring buffer of completed run records
	transitions []Transition
	completed   int
	failed      int
	cancelled   int
	lastFailAt  *time.Time
}

// RecordRun records the wall-clock duration of a completed job.
func (mc *MetricsCollector) RecordRun(duration time.Duration) {
	record := runRecord{
		Duration:    duration,
		CompletedAt: time.Now(),
	}

	if len(mc.runTimes) >= mc.windowSize {
		// Shift elements left, drop oldest
		copy(mc.runTimes, mc.runTimes[1:])
		mc.runTimes[len(mc.runTimes)-1] = record
	} else {
		mc.runTimes = append(mc.runTimes, record)
	}
}

// RecordTransition records a state transition.
func (mc *MetricsCollector) RecordTransition(t Transition) {
	// Keep only last 10 transitions
	if len(mc.transitions) >= 10 {
		copy(mc.transitions, mc.transitions[1:])
		mc.transitions[len(mc.transitions)-1] = t
	} else {
		mc.transitions = append(mc.transitions, t)
	}

	switch t.To {
	case domain.JobStatusCompleted:
		mc.completed++
	case domain.JobStatusFailed:
		mc.failed++
		now := t.Timestamp
		mc.lastFailAt = &now
	case domain.JobStatusCancelled:
		mc.cancelled++
	}
}

// GetMetrics returns current metrics.
func (mc *MetricsCollector) GetMetrics() Metrics {
	m := Metrics{
		CompletedCount: mc.completed,
		FailedCount:    mc.failed,
		CancelledCount: mc.cancelled,
		LastFailureAt:  mc.lastFailAt,
		StateHistory:   make([]Transition, len(mc.transitions)),
	}
	copy(m.StateHistory, mc.transitions)

	if len(mc.runTimes) > 0 {
		var total time.Duration
		for _, r := range mc.runTimes {
			total += r.Duration
		}
		m.AverageRunTime = total / time.Duration(len(mc.runTimes))
	}

	// Throughput over the observation window
	if len(mc.runTimes) >= 2 {
		first := mc.runTimes[0]
		last := mc.runTimes[len(mc.runTimes)-1]
		span := last.CompletedAt.Sub(first.CompletedAt)

		if span > 0 {
			m.JobsPerHour = float64(len(mc.runTimes)-1) / span.Hours()
		}
	}

	return m
}

// Reset clears all collected metrics.
func (mc *MetricsCollector) Reset() {
	mc.runTimes = mc.runTimes[:0]
	mc.transitions = mc.transitions[:0]
	mc.completed = 0
	mc.failed = 0
	mc.cancelled = 0
	mc.lastFailAt = nil
}
