package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/genflow/internal/control"
	"github.com/vietddude/genflow/internal/core/config"
)

func TestGracefulShutdown(t *testing.T) {
	// A backend that accepts submissions but never completes them, so
	// shutdown happens with work still pending.
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"task_id": "task-1", "status": "pending"})
	})
	mux.HandleFunc("/generate/status/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"task_id": "task-1", "status": "processing", "progress_percent": 10})
	})
	mux.HandleFunc("/generate/history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Memory storage: no database needed to exercise shutdown.
	cfg := config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		API:    config.APIConfig{BaseURL: srv.URL, Key: "test"},
		Client: config.ClientConfig{
			MaxConcurrentRequests: 2,
			Timeout:               5 * time.Second,
		},
		Poll: config.PollConfig{
			InitialInterval: 100 * time.Millisecond,
			MaxFailures:     3,
		},
		History: config.HistoryConfig{
			SyncInterval: time.Second,
			SyncLimit:    10,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let background workers run for a bit
	time.Sleep(2 * time.Second)

	// Trigger shutdown
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	done := make(chan error, 1)
	go func() { done <- app.Stop(stopCtx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("App.Stop did not return within 10s")
	}
}
