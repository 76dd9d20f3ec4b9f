// Package api provides a resilient client for the generation service.
//
// This package offers robust request submission with:
//   - Total request validation before any network activity
//   - A closed, classified error taxonomy
//   - Per-attempt timeouts composed with external cancellation
//   - Exponential-backoff retry of transient failures only
//   - Priority-queued dispatch under a concurrency cap
//   - Adaptive status polling
//
// # Quick Start
//
//	import "github.com/vietddude/genflow/internal/infra/api"
//
//	client := api.NewClient(api.Config{
//		BaseURL:               "https://veo.example.com/api/v1",
//		APIKey:                os.Getenv("GENFLOW_API_KEY"),
//		MaxConcurrentRequests: 3,
//	})
//	defer client.Close()
//
//	job, err := client.Generate(ctx, domain.GenerationRequest{
//		Prompt: "a red fox crossing a snowy field at dawn",
//	}, domain.RequestOptions{Priority: domain.PriorityHigh})
//
// # Package Structure
//
// The package is organized into sub-packages for maintainability:
//
//   - transport/ - single HTTP exchanges, endpoint monitoring
//   - retry/     - backoff policy over classified errors
//   - queue/     - bounded-concurrency priority dispatch
//   - quota/     - daily request and cost budgets
//
// The Client at the root composes them in that order: validate, then
// quota, then queue, then retry, then transport.
package api

import (
	"fmt"

	"github.com/vietddude/genflow/internal/core/domain"
)

const (
	pathGenerate = "/generate"
	pathStatus   = "/generate/status"
	pathHistory  = "/generate/history"
)

// generateResponse is the submit envelope. The service has shipped both
// generation_id and task_id spellings across versions; either is
// accepted.
type generateResponse struct {
	GenerationID string           `json:"generation_id"`
	TaskID       string           `json:"task_id"`
	Status       domain.JobStatus `json:"status"`
}

func (r generateResponse) remoteID() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	return r.GenerationID
}

func statusPath(remoteID string) string {
	return fmt.Sprintf("%s/%s", pathStatus, remoteID)
}

// BatchItem is the per-request outcome of a batch submission.
type BatchItem struct {
	Job *domain.Job
	Err error
}
