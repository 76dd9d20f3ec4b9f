package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
)

func TestHTTPExecutor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("expected path /generate, got %s", r.URL.Path)
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		if r.Method != "POST" {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer token, got %q", got)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if body["prompt"] != "city lights" {
			t.Errorf("expected prompt in body, got %v", body["prompt"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"task_id": "task-123",
			"status":  "pending",
		})
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "test-key", 5*time.Second)
	defer e.Close()

	resp, err := e.Do(context.Background(), Request{
		Method: "POST",
		Path:   "/generate",
		Body:   map[string]any{"prompt": "city lights"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if decoded["task_id"] != "task-123" {
		t.Errorf("expected task-123, got %v", decoded["task_id"])
	}
}

func TestHTTPExecutor_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("expected limit=25, got %q", got)
		}
		_ = json.NewEncoder(w).Encode([]any{})
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	q := url.Values{}
	q.Set("limit", "25")
	if _, err := e.Do(context.Background(), Request{Method: "GET", Path: "/generate/history", Query: q}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPExecutor_ValidationResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","duration_seconds"],"msg":"must be between 1 and 300","type":"value_error"}]}`))
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	resp, err := e.Do(context.Background(), Request{Method: "POST", Path: "/generate"})
	if err == nil {
		t.Fatal("expected classified error")
	}
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected raw 422 response alongside the error, got %+v", resp)
	}

	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Type != apierr.TypeValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "duration_seconds" {
		t.Errorf("unexpected fields: %v", apiErr.Fields)
	}
}

func TestHTTPExecutor_RateLimitRecordsThrottle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limit exceeded"}`))
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	_, err := e.Do(context.Background(), Request{Method: "POST", Path: "/generate"})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Type != apierr.TypeRateLimit {
		t.Fatalf("expected rate_limit_error, got %v", err)
	}
	if apiErr.RetryAfter == nil || *apiErr.RetryAfter != 7*time.Second {
		t.Errorf("expected retryAfter 7s, got %v", apiErr.RetryAfter)
	}

	stats := e.Monitor.Stats()
	if stats.ThrottleCount429 != 1 {
		t.Errorf("expected monitor to record the throttle, got %d", stats.ThrottleCount429)
	}
	if got := e.Monitor.RetryAfter(); got <= 0 || got > 7*time.Second {
		t.Errorf("expected remaining backoff within 7s, got %v", got)
	}
}

func TestHTTPExecutor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"generation engine crashed"}`))
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	_, err := e.Do(context.Background(), Request{Method: "POST", Path: "/generate"})
	apiErr, ok := apierr.As(err)
	if !ok || apiErr.Type != apierr.TypeServer {
		t.Fatalf("expected server_error, got %v", err)
	}
	if apiErr.ErrorCode != "UNKNOWN" {
		t.Errorf("expected code UNKNOWN, got %s", apiErr.ErrorCode)
	}
}

func TestHTTPExecutor_AttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	_, err := e.Do(context.Background(), Request{
		Method:  "POST",
		Path:    "/generate",
		Timeout: 30 * time.Millisecond,
	})
	if got := apierr.TypeOf(err); got != apierr.TypeTimeout {
		t.Fatalf("expected timeout_error when the attempt timer fires, got %v (%v)", got, err)
	}
}

func TestHTTPExecutor_ExternalCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := e.Do(ctx, Request{Method: "POST", Path: "/generate"})
	if got := apierr.TypeOf(err); got != apierr.TypeCancelled {
		t.Fatalf("expected cancelled_error when the caller withdraws, got %v (%v)", got, err)
	}
}

func TestHTTPExecutor_ConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	e := NewHTTPExecutor(url, "", 2*time.Second)
	defer e.Close()

	_, err := e.Do(context.Background(), Request{Method: "POST", Path: "/generate"})
	if got := apierr.TypeOf(err); got != apierr.TypeNetwork {
		t.Fatalf("expected network_error, got %v (%v)", got, err)
	}
}

func TestHTTPExecutor_HealthTracksFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewHTTPExecutor(server.URL, "", 5*time.Second)
	defer e.Close()

	for i := 0; i < 3; i++ {
		_, _ = e.Do(context.Background(), Request{Method: "POST", Path: "/generate"})
	}

	h := e.Health()
	if h.ErrorRate != 1.0 {
		t.Errorf("expected error rate 1.0, got %v", h.ErrorRate)
	}
	if h.Available {
		t.Error("expected executor marked unavailable after sustained failures")
	}
	if h.MonitorStats == nil {
		t.Error("expected monitor stats attached to health")
	}
}
