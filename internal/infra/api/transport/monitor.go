package transport

import (
	"sync"
	"time"
)

// EndpointStatus represents the observed state of the backend endpoint.
type EndpointStatus int

const (
	StatusHealthy   EndpointStatus = iota // Endpoint is working normally
	StatusDegraded                        // Endpoint is slow but working
	StatusThrottled                       // Endpoint is rate limiting us
	StatusBlocked                         // Endpoint rejected our credentials
)

func (s EndpointStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics for the endpoint.
type MonitorStats struct {
	Status              EndpointStatus
	AverageLatency      time.Duration
	ThrottleCount429    int
	RejectCount403      int
	RequestsLast1Hour   int
	RequestsLast24Hours int
	EstimatedDailyLimit int
	UsagePercentage     float64
}

// EndpointMonitor tracks endpoint latency and rate limiting. It only
// observes; gating decisions belong to the retry and quota layers.
type EndpointMonitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	// Throttle tracking
	status429Count   int
	status403Count   int
	lastThrottleTime time.Time
	retryAfter       time.Duration

	// Sliding window
	requestTimestamps   []time.Time
	estimatedDailyLimit int
	windowDuration      time.Duration

	// Thresholds
	slowResponseThreshold time.Duration
}

// NewEndpointMonitor creates a monitor with default settings.
func NewEndpointMonitor() *EndpointMonitor {
	return &EndpointMonitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		requestTimestamps:     make([]time.Time, 0),
		estimatedDailyLimit:   1000, // Conservative for a generation API
		windowDuration:        24 * time.Hour,
		slowResponseThreshold: 5 * time.Second,
	}
}

// RecordRequest records a successful exchange with its latency.
func (m *EndpointMonitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)

	cutoff := now.Add(-m.windowDuration)
	filtered := m.requestTimestamps[:0]
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	m.requestTimestamps = filtered
}

// RecordThrottle records a rate limiting or credential rejection
// response. retryAfter is the server-provided backoff when present,
// zero otherwise.
func (m *EndpointMonitor) RecordThrottle(statusCode int, retryAfter time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = time.Now()

	switch statusCode {
	case 429:
		m.status429Count++
		if retryAfter > 0 {
			m.retryAfter = retryAfter
		} else {
			m.retryAfter = time.Minute
		}
	case 403:
		m.status403Count++
		m.retryAfter = 10 * time.Minute
	}
}

// Status returns the current observed state of the endpoint.
func (m *EndpointMonitor) Status() EndpointStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.status403Count > 0 && time.Since(m.lastThrottleTime) < m.retryAfter {
		return StatusBlocked
	}

	if m.status429Count > 5 && time.Since(m.lastThrottleTime) < m.retryAfter {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 {
		var total time.Duration
		for _, lat := range m.recentLatencies {
			total += lat
		}
		avg := total / time.Duration(len(m.recentLatencies))

		if avg > m.slowResponseThreshold {
			return StatusDegraded
		}
	}

	if float64(len(m.requestTimestamps))/float64(m.estimatedDailyLimit) > 0.9 {
		return StatusThrottled
	}

	return StatusHealthy
}

// RetryAfter returns remaining server-directed backoff, zero when none
// is in effect.
func (m *EndpointMonitor) RetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.retryAfter > 0 {
		remaining := m.retryAfter - time.Since(m.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}

	return 0
}

// AverageLatency returns the average latency of recent exchanges.
func (m *EndpointMonitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.recentLatencies) == 0 {
		return 0
	}

	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}

	return total / time.Duration(len(m.recentLatencies))
}

// RequestCount returns the number of requests within the given window.
func (m *EndpointMonitor) RequestCount(window time.Duration) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	count := 0
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			count++
		}
	}

	return count
}

// Stats returns current monitoring statistics.
func (m *EndpointMonitor) Stats() MonitorStats {
	status := m.Status()
	avgLatency := m.AverageLatency()
	reqLast1Hour := m.RequestCount(time.Hour)

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MonitorStats{
		Status:              status,
		AverageLatency:      avgLatency,
		ThrottleCount429:    m.status429Count,
		RejectCount403:      m.status403Count,
		RequestsLast1Hour:   reqLast1Hour,
		RequestsLast24Hours: len(m.requestTimestamps),
		EstimatedDailyLimit: m.estimatedDailyLimit,
	}

	if len(m.requestTimestamps) > 0 {
		stats.UsagePercentage = float64(len(m.requestTimestamps)) / float64(m.estimatedDailyLimit) * 100
	}

	return stats
}

// SetDailyLimit updates the estimated daily request limit.
func (m *EndpointMonitor) SetDailyLimit(limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 {
		m.estimatedDailyLimit = limit
	}
}
