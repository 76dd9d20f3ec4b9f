package poller

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Adaptive:              true,
		InitialInterval:       8 * time.Second,
		MinInterval:           1 * time.Second,
		MaxInterval:           30 * time.Second,
		AccelerationThreshold: 80,
		MaxFailures:           5,
	}
}

func TestInterval_SteadyBelowThreshold(t *testing.T) {
	a := NewAdaptiveInterval(testConfig())

	for _, progress := range []float64{0, 10, 50, 79, 80} {
		if got := a.Next(progress); got != 8*time.Second {
			t.Errorf("Next(%v) = %v, want initial 8s (threshold not exceeded)", progress, got)
		}
	}
}

func TestInterval_HalvesAboveThreshold(t *testing.T) {
	a := NewAdaptiveInterval(testConfig())

	steps := []struct {
		progress float64
		want     time.Duration
	}{
		{10, 8 * time.Second},
		{50, 8 * time.Second},
		{85, 4 * time.Second},
		{90, 2 * time.Second},
		{95, 1 * time.Second},
		{99, 1 * time.Second}, // clamped at the minimum
	}

	for _, s := range steps {
		if got := a.Next(s.progress); got != s.want {
			t.Errorf("Next(%v) = %v, want %v", s.progress, got, s.want)
		}
	}

	if a.Current() != time.Second {
		t.Errorf("Current() = %v, want 1s", a.Current())
	}
}

func TestInterval_AdaptiveDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Adaptive = false
	a := NewAdaptiveInterval(cfg)

	for _, progress := range []float64{10, 90, 99} {
		if got := a.Next(progress); got != 8*time.Second {
			t.Errorf("Next(%v) = %v, want fixed 8s with adaptation off", progress, got)
		}
	}
}

func TestInterval_InitialClampedToBounds(t *testing.T) {
	cfg := testConfig()
	cfg.InitialInterval = 2 * time.Minute
	cfg.MaxInterval = 30 * time.Second

	a := NewAdaptiveInterval(cfg)
	if a.Current() != 30*time.Second {
		t.Errorf("expected initial clamped to max 30s, got %v", a.Current())
	}
}

func TestInterval_ZeroConfigUsesDefaults(t *testing.T) {
	a := NewAdaptiveInterval(Config{})
	if a.Current() != 5*time.Second {
		t.Errorf("expected default initial 5s, got %v", a.Current())
	}
}
