package poller

import "time"

// Config holds polling cadence and failure tolerance.
type Config struct {
	// Adaptive controls whether intervals shrink as progress climbs.
	Adaptive bool

	// Interval bounds
	InitialInterval time.Duration // First delay between queries (default: 5s)
	MinInterval     time.Duration // Fastest polling rate (default: 1s)
	MaxInterval     time.Duration // Slowest polling rate (default: 30s)

	// AccelerationThreshold is the progress percentage above which the
	// interval halves (default: 80)
	AccelerationThreshold float64

	// MaxFailures is the number of consecutive failed queries tolerated
	// before the poll aborts with the last error (default: 5)
	MaxFailures int
}

// DefaultConfig returns sensible polling defaults.
func DefaultConfig() Config {
	return Config{
		Adaptive:              true,
		InitialInterval:       5 * time.Second,
		MinInterval:           1 * time.Second,
		MaxInterval:           30 * time.Second,
		AccelerationThreshold: 80,
		MaxFailures:           5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.AccelerationThreshold <= 0 {
		c.AccelerationThreshold = d.AccelerationThreshold
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = d.MaxFailures
	}
	return c
}
