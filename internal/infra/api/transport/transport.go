// Package transport performs single HTTP exchanges against the
// generation backend.
//
// This package contains:
//   - Executor interface: one request in, one classified result out
//   - HTTPExecutor: REST-over-HTTP implementation
//   - EndpointMonitor: latency and rate-limit tracking
//
// An Executor never retries and never queues. Each Do call is exactly
// one exchange; retry and dispatch policy live in the retry and queue
// packages that wrap it.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes one exchange against the backend. Body is JSON
// marshaled when non-nil. Timeout bounds this attempt only; zero falls
// back to the executor default.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Timeout time.Duration
}

// Response is the raw outcome of an exchange. It is returned alongside
// the classified error for non-2xx statuses so callers can inspect
// headers the classifier did not consume.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// Executor performs exactly one HTTP exchange per call.
//
// The context passed to Do is the external cancellation token; the
// executor layers the per-attempt timeout on top and tags the returned
// error by whichever fired first.
type Executor interface {
	Do(ctx context.Context, req Request) (*Response, error)
	Health() HealthStatus
	Close() error
}

// HealthStatus summarizes recent executor behavior.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
