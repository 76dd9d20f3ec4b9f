package transport

import (
	"testing"
	"time"
)

func TestMonitorAccumulation(t *testing.T) {
	m := NewEndpointMonitor()

	m.RecordRequest(100 * time.Millisecond)

	stats := m.Stats()
	if stats.RequestsLast24Hours != 1 {
		t.Errorf("expected 1 request, got %d", stats.RequestsLast24Hours)
	}

	for i := 0; i < 100; i++ {
		m.RecordRequest(50 * time.Millisecond)
	}

	stats = m.Stats()
	if stats.RequestsLast24Hours != 101 {
		t.Errorf("expected 101 requests, got %d", stats.RequestsLast24Hours)
	}
	if stats.RequestsLast1Hour != 101 {
		t.Errorf("expected 101 requests in the last hour, got %d", stats.RequestsLast1Hour)
	}
}

func TestMonitorThrottleStatus(t *testing.T) {
	m := NewEndpointMonitor()

	if m.Status() != StatusHealthy {
		t.Errorf("fresh monitor should be healthy, got %v", m.Status())
	}

	// A handful of 429s within the backoff window flips to throttled.
	for i := 0; i < 6; i++ {
		m.RecordThrottle(429, 30*time.Second)
	}
	if m.Status() != StatusThrottled {
		t.Errorf("expected throttled after repeated 429s, got %v", m.Status())
	}

	if got := m.RetryAfter(); got <= 0 || got > 30*time.Second {
		t.Errorf("expected remaining backoff within 30s, got %v", got)
	}
}

func TestMonitorBlockedStatus(t *testing.T) {
	m := NewEndpointMonitor()

	m.RecordThrottle(403, 0)
	if m.Status() != StatusBlocked {
		t.Errorf("expected blocked after 403, got %v", m.Status())
	}
}

func TestMonitorUsagePercentage(t *testing.T) {
	m := NewEndpointMonitor()
	m.SetDailyLimit(10)

	for i := 0; i < 5; i++ {
		m.RecordRequest(10 * time.Millisecond)
	}

	stats := m.Stats()
	if stats.UsagePercentage != 50 {
		t.Errorf("expected 50%% usage, got %v", stats.UsagePercentage)
	}

	// Past 90% of the estimated limit the monitor reports throttled.
	for i := 0; i < 5; i++ {
		m.RecordRequest(10 * time.Millisecond)
	}
	if m.Status() != StatusThrottled {
		t.Errorf("expected throttled near the daily limit, got %v", m.Status())
	}
}

func TestEndpointStatusString(t *testing.T) {
	tests := []struct {
		status EndpointStatus
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusThrottled, "throttled"},
		{StatusBlocked, "blocked"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
