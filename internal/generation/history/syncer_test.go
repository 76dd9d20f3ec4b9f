package history

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/infra/storage/memory"
)

type fakeFetcher struct {
	history   []domain.HistoryRecord
	histErr   error
	statuses  map[string]*domain.StatusSnapshot
	statusErr error
}

func (f *fakeFetcher) History(_ context.Context, limit int) ([]domain.HistoryRecord, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeFetcher) Status(_ context.Context, remoteID string) (*domain.StatusSnapshot, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	snap, ok := f.statuses[remoteID]
	if !ok {
		return nil, errors.New("unknown task")
	}
	return snap, nil
}

func newTestSyncer(f Fetcher, jobs *memory.JobStore, hist *memory.HistoryStore) *Syncer {
	return NewSyncer(Config{Interval: time.Minute, Limit: 50}, f, jobs, hist, slog.Default())
}

func TestSyncOnce_PullsHistory(t *testing.T) {
	fetcher := &fakeFetcher{
		history: []domain.HistoryRecord{
			{RemoteID: "task-1", Model: domain.ModelVideo, Prompt: "a sunset", Status: domain.JobStatusCompleted, CreatedAt: time.Now()},
			{RemoteID: "task-2", Model: domain.ModelImage, Prompt: "a cat", Status: domain.JobStatusFailed, CreatedAt: time.Now()},
		},
	}
	hist := memory.NewHistoryStore()
	s := newTestSyncer(fetcher, memory.NewJobStore(), hist)

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	recs, err := hist.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("Expected 2 records, got %d", len(recs))
	}

	stats := s.GetStats()
	if stats.Synced != 2 {
		t.Errorf("Expected 2 synced, got %d", stats.Synced)
	}
	if stats.Passes != 1 {
		t.Errorf("Expected 1 pass, got %d", stats.Passes)
	}
}

func TestSyncOnce_ReconcilesActiveJobs(t *testing.T) {
	jobs := memory.NewJobStore()
	hist := memory.NewHistoryStore()

	job := &domain.Job{
		ID:        "local-1",
		RemoteID:  "task-1",
		Model:     domain.ModelVideo,
		Prompt:    "a waterfall",
		Status:    domain.JobStatusProcessing,
		Progress:  40,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	if err := jobs.Save(context.Background(), job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fetcher := &fakeFetcher{
		statuses: map[string]*domain.StatusSnapshot{
			"task-1": {
				RemoteID:    "task-1",
				Status:      domain.JobStatusCompleted,
				Progress:    100,
				ArtifactURL: "https://cdn.example.com/v/task-1.mp4",
			},
		},
	}

	s := newTestSyncer(fetcher, jobs, hist)
	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	got, err := jobs.GetByID(context.Background(), "local-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.JobStatusCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
	if got.Progress != 100 {
		t.Errorf("Expected progress 100, got %f", got.Progress)
	}

	rec, err := hist.GetByRemoteID(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Expected history record for terminal job: %v", err)
	}
	if rec.ArtifactURL != "https://cdn.example.com/v/task-1.mp4" {
		t.Errorf("Unexpected artifact URL: %s", rec.ArtifactURL)
	}
	if rec.CompletedAt.IsZero() {
		t.Error("Expected completed_at to be set")
	}
}

func TestSyncOnce_StatusFetchFailureDoesNotAbortPass(t *testing.T) {
	jobs := memory.NewJobStore()
	_ = jobs.Save(context.Background(), &domain.Job{
		ID:       "local-1",
		RemoteID: "task-1",
		Status:   domain.JobStatusProcessing,
	})

	fetcher := &fakeFetcher{statusErr: errors.New("connection refused")}
	s := newTestSyncer(fetcher, jobs, memory.NewHistoryStore())

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("Expected pass to survive status failures, got: %v", err)
	}

	// Job stays untouched when its status can't be fetched.
	got, _ := jobs.GetByID(context.Background(), "local-1")
	if got.Status != domain.JobStatusProcessing {
		t.Errorf("Expected processing, got %s", got.Status)
	}
}

func TestSyncOnce_HistoryFetchErrorRecorded(t *testing.T) {
	fetcher := &fakeFetcher{histErr: errors.New("server unavailable")}
	s := newTestSyncer(fetcher, memory.NewJobStore(), memory.NewHistoryStore())

	if err := s.SyncOnce(context.Background()); err == nil {
		t.Fatal("Expected error from failed history fetch")
	}
	if s.GetStats().LastError == "" {
		t.Error("Expected LastError to be recorded")
	}
}

func TestSyncOnce_SkipsUnchangedJobs(t *testing.T) {
	jobs := memory.NewJobStore()
	created := time.Now().Add(-time.Minute)
	_ = jobs.Save(context.Background(), &domain.Job{
		ID:        "local-1",
		RemoteID:  "task-1",
		Status:    domain.JobStatusProcessing,
		Progress:  40,
		UpdatedAt: created,
	})

	fetcher := &fakeFetcher{
		statuses: map[string]*domain.StatusSnapshot{
			"task-1": {RemoteID: "task-1", Status: domain.JobStatusProcessing, Progress: 40},
		},
	}
	s := newTestSyncer(fetcher, jobs, memory.NewHistoryStore())

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce failed: %v", err)
	}

	got, _ := jobs.GetByID(context.Background(), "local-1")
	if !got.UpdatedAt.Equal(created) {
		t.Error("Expected unchanged job to keep its updated_at")
	}
}
