package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/genflow/internal/core/config"
	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/generation/poller"
)

// fakeService simulates the generation backend: submissions get a task
// id, the first status poll reports processing, the second completed.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()

	var submissions, polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		submissions.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"task_id": "task-1",
			"status":  "pending",
		})
	})
	mux.HandleFunc("/generate/status/", func(w http.ResponseWriter, r *http.Request) {
		taskID := strings.TrimPrefix(r.URL.Path, "/generate/status/")
		n := polls.Add(1)
		resp := map[string]any{
			"task_id":          taskID,
			"status":           "processing",
			"progress_percent": 50,
		}
		if n >= 2 {
			resp["status"] = "completed"
			resp["progress_percent"] = 100
			resp["video_url"] = "https://cdn.example.com/v/" + taskID + ".mp4"
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/generate/history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]any{})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.AppConfig {
	return config.AppConfig{
		Server: config.ServerConfig{Port: 0},
		API:    config.APIConfig{BaseURL: baseURL, Key: "test-key"},
		Client: config.ClientConfig{
			MaxConcurrentRequests: 2,
			Timeout:               5 * time.Second,
			MaxRetries:            1,
		},
		Poll: config.PollConfig{
			InitialInterval: 10 * time.Millisecond,
			MinInterval:     5 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			MaxFailures:     3,
		},
		Budget: config.BudgetConfig{DailyQuota: 100, DailyCost: 50},
		History: config.HistoryConfig{
			SyncInterval: time.Minute,
			SyncLimit:    50,
		},
	}
}

func TestApp_GenerateTracksAndPersists(t *testing.T) {
	srv := fakeService(t)

	app, err := NewApp(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Stop(context.Background())

	var progressSeen atomic.Int32
	job, err := app.Generate(context.Background(), domain.GenerationRequest{
		Prompt: "a red fox crossing a snowy field",
	}, domain.RequestOptions{}, poller.Callbacks{
		OnProgress: func(snap domain.StatusSnapshot) { progressSeen.Add(1) },
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if job.Status != domain.JobStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	if progressSeen.Load() < 2 {
		t.Errorf("Expected at least 2 progress callbacks, got %d", progressSeen.Load())
	}

	// Persisted job reflects the terminal state.
	stored, err := app.Jobs().GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != domain.JobStatusCompleted {
		t.Errorf("Stored status %s, want completed", stored.Status)
	}

	// A history record exists for the settled job.
	rec, err := app.History().GetByRemoteID(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Expected history record: %v", err)
	}
	if rec.ArtifactURL == "" {
		t.Error("Expected artifact URL in history record")
	}

	// The budget gate saw the submission.
	if app.Usage().TotalCalls != 1 {
		t.Errorf("Expected 1 recorded call, got %d", app.Usage().TotalCalls)
	}
}

func TestApp_GenerateRejectsInvalidRequest(t *testing.T) {
	srv := fakeService(t)

	app, err := NewApp(context.Background(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Stop(context.Background())

	_, err = app.Generate(context.Background(), domain.GenerationRequest{
		Prompt: "",
	}, domain.RequestOptions{}, poller.Callbacks{})
	if err == nil {
		t.Fatal("Expected validation error for empty prompt")
	}

	if app.Usage().TotalCalls != 0 {
		t.Errorf("Invalid request must not consume budget, got %d calls", app.Usage().TotalCalls)
	}
}

func TestApp_StartStop(t *testing.T) {
	srv := fakeService(t)

	cfg := testConfig(srv.URL)
	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.Stop(shutdownCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
