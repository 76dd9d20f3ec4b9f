package quota

import (
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// PredictionStats holds exhaustion forecasting data for one model family.
type PredictionStats struct {
	RatePerMinute    float64
	TimeToExhaustion time.Duration
	RemainingCalls   int
}

// Predictor estimates when the daily budget will run out, per model, from
// the recent request rate.
type Predictor struct {
	mu sync.RWMutex

	samples    map[domain.Model][]time.Time
	window     time.Duration
	maxSamples int
}

// NewPredictor creates a predictor with a 5-minute rate window.
func NewPredictor() *Predictor {
	return &Predictor{
		samples:    make(map[domain.Model][]time.Time),
		window:     5 * time.Minute,
		maxSamples: 1000,
	}
}

// RecordRequest records one submitted request for rate tracking.
func (p *Predictor) RecordRequest(model domain.Model) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	samples := append(p.samples[model], now)

	cutoff := now.Add(-p.window)
	filtered := samples[:0]
	for _, ts := range samples {
		if ts.After(cutoff) {
			filtered = append(filtered, ts)
		}
	}
	if len(filtered) > p.maxSamples {
		filtered = filtered[len(filtered)-p.maxSamples:]
	}
	p.samples[model] = filtered
}

// Rate returns the current request rate in requests per minute.
func (p *Predictor) Rate(model domain.Model) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	samples := p.samples[model]
	if len(samples) < 2 {
		return 0
	}

	cutoff := time.Now().Add(-p.window)
	var count int
	for _, ts := range samples {
		if ts.After(cutoff) {
			count++
		}
	}

	return float64(count) / p.window.Minutes()
}

// TimeToExhaustion predicts how long the remaining quota lasts at the
// current rate. Zero means no prediction (idle or already exhausted).
func (p *Predictor) TimeToExhaustion(model domain.Model, remaining int) time.Duration {
	rate := p.Rate(model)
	if rate <= 0 || remaining <= 0 {
		return 0
	}

	minutes := float64(remaining) / rate
	return time.Duration(minutes * float64(time.Minute))
}

// Stats returns the full forecast for one model.
func (p *Predictor) Stats(model domain.Model, remaining int) PredictionStats {
	return PredictionStats{
		RatePerMinute:    p.Rate(model),
		TimeToExhaustion: p.TimeToExhaustion(model, remaining),
		RemainingCalls:   remaining,
	}
}

// Reset clears all tracking data.
func (p *Predictor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = make(map[domain.Model][]time.Time)
}
