package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
)

// HTTPExecutor implements Executor over REST/JSON.
type HTTPExecutor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *EndpointMonitor
}

// NewHTTPExecutor creates an executor for the given backend. timeout is
// the default per-attempt bound; requests may override it per call.
//
// The underlying http.Client carries no Timeout of its own: attempts are
// bounded through the context so the classifier can tell the attempt
// timer from external cancellation.
func NewHTTPExecutor(baseURL, apiKey string, timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewEndpointMonitor(),
	}
}

// Do performs exactly one HTTP exchange. ctx is the external
// cancellation token; the per-attempt timeout is layered on top with its
// own cause so failures report which one fired.
//
// 2xx returns (response, nil). Non-2xx returns the raw response together
// with the classified error. Transport failures return (nil, classified).
func (e *HTTPExecutor) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	attemptCtx, cancel := context.WithTimeoutCause(ctx, timeout, apierr.ErrAttemptTimeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			e.recordFailure()
			return nil, apierr.Network(fmt.Sprintf("marshal request: %v", err), err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	url := e.baseURL + req.Path
	if len(req.Query) > 0 {
		url += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, url, bodyReader)
	if err != nil {
		e.recordFailure()
		return nil, apierr.Network(fmt.Sprintf("create request: %v", err), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.recordFailure()
		return nil, apierr.FromTransportError(attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.recordFailure()
		return nil, apierr.FromTransportError(attemptCtx, err)
	}

	latency := time.Since(start)
	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		Latency:    latency,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		e.Monitor.RecordRequest(latency)
		e.recordSuccess(latency)
		return out, nil
	}

	classified := apierr.FromResponse(resp.StatusCode, resp.Header, body)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		var after time.Duration
		if classified.RetryAfter != nil {
			after = *classified.RetryAfter
		}
		e.Monitor.RecordThrottle(resp.StatusCode, after)
	case http.StatusForbidden:
		e.Monitor.RecordThrottle(resp.StatusCode, 0)
	}

	e.recordFailure()
	return out, classified
}

// Health returns the executor's aggregate health.
func (e *HTTPExecutor) Health() HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h := e.health
	stats := e.Monitor.Stats()
	h.MonitorStats = &stats
	return h
}

// Close releases idle connections.
func (e *HTTPExecutor) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

func (e *HTTPExecutor) recordSuccess(latency time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.successCount++
	e.requestCount++
	e.totalLatency += latency
	e.health.LastSuccessAt = time.Now()
	e.health.Available = true

	if e.requestCount > 0 {
		e.health.ErrorRate = float64(e.failureCount) / float64(e.requestCount)
	}
	if e.successCount > 0 {
		e.health.Latency = e.totalLatency / time.Duration(e.successCount)
	}
}

func (e *HTTPExecutor) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failureCount++
	e.requestCount++
	e.health.LastFailureAt = time.Now()

	if e.requestCount > 0 {
		e.health.ErrorRate = float64(e.failureCount) / float64(e.requestCount)
	}

	if e.health.ErrorRate > 0.5 {
		e.health.Available = false
	}
}
