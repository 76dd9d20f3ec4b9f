package poller

import "time"

// AdaptiveInterval computes the delay before the next status query
// based on the most recent reported progress.
type AdaptiveInterval struct {
	config  Config
	current time.Duration
}

// NewAdaptiveInterval creates a controller starting at the configured
// initial interval.
func NewAdaptiveInterval(config Config) *AdaptiveInterval {
	config = config.withDefaults()
	return &AdaptiveInterval{
		config:  config,
		current: clamp(config.InitialInterval, config.MinInterval, config.MaxInterval),
	}
}

// Next returns the delay before the following query.
//
// Algorithm:
//   - adaptive disabled: stay at the initial interval
//   - progress > threshold: halve the interval (the job is nearly done,
//     check more often)
//   - otherwise: keep the current interval
//
// The result never leaves [MinInterval, MaxInterval].
func (a *AdaptiveInterval) Next(progress float64) time.Duration {
	if !a.config.Adaptive {
		return a.current
	}

	if progress > a.config.AccelerationThreshold {
		a.current = clamp(a.current/2, a.config.MinInterval, a.config.MaxInterval)
	}

	return a.current
}

// Current returns the last computed interval (for metrics).
func (a *AdaptiveInterval) Current() time.Duration {
	return a.current
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
