// Package quota handles daily request and spend budgets for the
// generation backend.
//
// This package contains:
//   - Tracker: daily call and cost accounting with midnight-UTC reset
//   - Predictor: exhaustion forecasting from the recent request rate
//   - Limiter: the dispatch gate, with threshold alerts and optional
//     strict enforcement
package quota

import (
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// UsageStats holds budget usage statistics.
type UsageStats struct {
	TotalCalls      int
	CallsPerHour    int
	DailyLimit      int
	RemainingCalls  int
	UsagePercentage float64

	SpentToday      float64
	DailySpendLimit float64
	SpendPercentage float64

	NextResetAt time.Time
}

type modelUsage struct {
	calls         int
	callsThisHour int
	hourStartTime time.Time
	spent         float64
}

// Tracker accounts calls and spend against the daily budgets. Counters
// roll over at midnight UTC, matching the backend's own billing day.
type Tracker struct {
	mu         sync.RWMutex
	usage      map[domain.Model]*modelUsage
	totalCalls int
	totalSpent float64

	dailyQuota int
	dailyCost  float64
	resetTime  time.Time
}

// NewTracker creates a tracker with the given daily limits.
func NewTracker(dailyQuota int, dailyCost float64) *Tracker {
	return &Tracker{
		usage:      make(map[domain.Model]*modelUsage),
		dailyQuota: dailyQuota,
		dailyCost:  dailyCost,
		resetTime:  nextMidnightUTC(time.Now()),
	}
}

// RecordCall records one submitted request and its estimated cost.
func (t *Tracker) RecordCall(model domain.Model, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	u, ok := t.usage[model]
	if !ok {
		u = &modelUsage{hourStartTime: time.Now()}
		t.usage[model] = u
	}

	if time.Since(u.hourStartTime) >= time.Hour {
		u.callsThisHour = 0
		u.hourStartTime = time.Now()
	}

	u.calls++
	u.callsThisHour++
	u.spent += cost
	t.totalCalls++
	t.totalSpent += cost
}

// CanMakeCall reports whether one more call of the given cost fits both
// daily budgets.
func (t *Tracker) CanMakeCall(cost float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	if t.dailyQuota > 0 && t.totalCalls >= t.dailyQuota {
		return false
	}
	if t.dailyCost > 0 && t.totalSpent+cost > t.dailyCost {
		return false
	}
	return true
}

// GetUsage returns aggregate usage across all models.
func (t *Tracker) GetUsage() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	var hourly int
	for _, u := range t.usage {
		if time.Since(u.hourStartTime) < time.Hour {
			hourly += u.callsThisHour
		}
	}

	return t.statsLocked(t.totalCalls, hourly, t.totalSpent)
}

// GetModelUsage returns usage for one model, measured against the
// shared daily limits.
func (t *Tracker) GetModelUsage(model domain.Model) UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	u, ok := t.usage[model]
	if !ok {
		return t.statsLocked(0, 0, 0)
	}

	hourly := u.callsThisHour
	if time.Since(u.hourStartTime) >= time.Hour {
		hourly = 0
	}
	return t.statsLocked(u.calls, hourly, u.spent)
}

// NextResetAt returns the moment the daily counters roll over.
func (t *Tracker) NextResetAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.resetTime
}

// Reset clears all counters and schedules the next rollover.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) statsLocked(calls, hourly int, spent float64) UsageStats {
	stats := UsageStats{
		TotalCalls:      calls,
		CallsPerHour:    hourly,
		DailyLimit:      t.dailyQuota,
		SpentToday:      spent,
		DailySpendLimit: t.dailyCost,
		NextResetAt:     t.resetTime,
	}

	if t.dailyQuota > 0 {
		stats.RemainingCalls = t.dailyQuota - calls
		if stats.RemainingCalls < 0 {
			stats.RemainingCalls = 0
		}
		stats.UsagePercentage = float64(calls) / float64(t.dailyQuota) * 100
	}
	if t.dailyCost > 0 {
		stats.SpendPercentage = spent / t.dailyCost * 100
	}
	return stats
}

func (t *Tracker) maybeResetLocked() {
	if time.Now().After(t.resetTime) {
		t.resetLocked()
	}
}

func (t *Tracker) resetLocked() {
	t.usage = make(map[domain.Model]*modelUsage)
	t.totalCalls = 0
	t.totalSpent = 0
	t.resetTime = nextMidnightUTC(time.Now())
}

func nextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
