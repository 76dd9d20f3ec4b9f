package quota

import (
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

// AlertLevel grades how close the daily budget is to exhaustion.
type AlertLevel int

const (
	AlertNone     AlertLevel = iota
	AlertWarning             // >= 80% used
	AlertCritical            // >= 90% used
	AlertExceeded            // budget gone
)

func (l AlertLevel) String() string {
	switch l {
	case AlertWarning:
		return "warning"
	case AlertCritical:
		return "critical"
	case AlertExceeded:
		return "exceeded"
	default:
		return "none"
	}
}

// Throttle delays per alert band. Below the warning threshold submissions
// pass untouched.
const (
	warningDelay  = 500 * time.Millisecond
	criticalDelay = 2 * time.Second
)

// CostFunc estimates the spend of one request before submission.
type CostFunc func(domain.GenerationRequest) float64

// Limiter is the dispatch gate over a Tracker. In strict mode an
// over-budget submission is rejected with a rate_limit_error whose
// RetryAfter points at the midnight rollover; otherwise the limiter only
// raises alerts and slows dispatch down.
type Limiter struct {
	tracker   *Tracker
	predictor *Predictor
	cost      CostFunc
	strict    bool

	mu        sync.Mutex
	lastLevel AlertLevel
	onAlert   func(AlertLevel, UsageStats)
}

// NewLimiter creates a limiter over tracker. cost may be nil for
// call-count-only budgets.
func NewLimiter(tracker *Tracker, cost CostFunc, strict bool) *Limiter {
	return &Limiter{
		tracker:   tracker,
		predictor: NewPredictor(),
		cost:      cost,
		strict:    strict,
	}
}

// SetAlertCallback registers a callback fired once per threshold
// crossing (80%, 90%, 100%).
func (l *Limiter) SetAlertCallback(fn func(AlertLevel, UsageStats)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAlert = fn
}

// Allow reports whether req may be dispatched. Only strict mode ever
// returns an error; the variant is rate_limit_error so the caller-facing
// taxonomy stays closed.
func (l *Limiter) Allow(req domain.GenerationRequest) error {
	usage := l.tracker.GetUsage()
	l.raiseAlert(usage)

	if !l.strict {
		return nil
	}
	if l.tracker.CanMakeCall(l.costOf(req)) {
		return nil
	}

	until := time.Until(usage.NextResetAt)
	if until < 0 {
		until = 0
	}
	info := &apierr.LimitInfo{
		Limit:     &usage.DailyLimit,
		Remaining: &usage.RemainingCalls,
		ResetTime: &usage.NextResetAt,
	}
	return apierr.RateLimit("daily budget exhausted", &until, info)
}

// Record notes a successfully submitted request.
func (l *Limiter) Record(req domain.GenerationRequest) {
	l.tracker.RecordCall(req.Model, l.costOf(req))
	l.predictor.RecordRequest(req.Model)
}

// ThrottleDelay returns the graduated slowdown for the current usage
// band: none below 80%, small below 90%, large above.
func (l *Limiter) ThrottleDelay() time.Duration {
	switch alertLevelFor(l.tracker.GetUsage()) {
	case AlertWarning:
		return warningDelay
	case AlertCritical, AlertExceeded:
		return criticalDelay
	default:
		return 0
	}
}

// Prediction returns the exhaustion forecast for one model.
func (l *Limiter) Prediction(model domain.Model) PredictionStats {
	usage := l.tracker.GetUsage()
	return l.predictor.Stats(model, usage.RemainingCalls)
}

// Usage exposes the tracker's aggregate stats.
func (l *Limiter) Usage() UsageStats {
	return l.tracker.GetUsage()
}

func (l *Limiter) costOf(req domain.GenerationRequest) float64 {
	if l.cost == nil {
		return 0
	}
	return l.cost(req)
}

func (l *Limiter) raiseAlert(usage UsageStats) {
	level := alertLevelFor(usage)

	l.mu.Lock()
	fire := level > l.lastLevel
	l.lastLevel = level // also steps back down after the daily reset
	callback := l.onAlert
	l.mu.Unlock()

	if fire && callback != nil {
		callback(level, usage)
	}
}

func alertLevelFor(usage UsageStats) AlertLevel {
	pct := usage.UsagePercentage
	if usage.SpendPercentage > pct {
		pct = usage.SpendPercentage
	}

	switch {
	case pct >= 100:
		return AlertExceeded
	case pct >= 90:
		return AlertCritical
	case pct >= 80:
		return AlertWarning
	default:
		return AlertNone
	}
}
