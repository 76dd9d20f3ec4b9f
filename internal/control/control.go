package control

import (
	"context"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/core/lifecycle"
	"github.com/vietddude/genflow/internal/generation/metrics"
	"github.com/vietddude/genflow/internal/generation/poller"
)

// Generate submits req, tracks it through the lifecycle state machine,
// persists every observed transition, and blocks until the job settles.
// The returned job carries the terminal state; a server-side failure is
// a nil error with Status failed.
func (a *App) Generate(ctx context.Context, req domain.GenerationRequest, opts domain.RequestOptions, cb poller.Callbacks) (*domain.Job, error) {
	start := time.Now()

	job, err := a.client.Generate(ctx, req, opts)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(modelLabel(req.Model), string(apierr.TypeOf(err))).Inc()
		return nil, err
	}

	if err := a.tracker.Register(job); err != nil {
		a.log.Warn("Failed to track job", "job", job.ID, "error", err)
	}
	if err := a.jobs.Save(ctx, job); err != nil {
		a.log.Warn("Failed to persist job", "job", job.ID, "error", err)
	}
	if a.cache != nil {
		if err := a.cache.PushRecent(ctx, job.RemoteID); err != nil {
			a.log.Debug("Failed to record recent job", "task", job.RemoteID, "error", err)
		}
		// Shared counter gives other processes visibility into today's usage.
		if _, err := a.cache.IncrQuota(ctx, job.Model); err != nil {
			a.log.Debug("Failed to bump quota counter", "model", job.Model, "error", err)
		}
	}

	final, err := a.client.Poll(ctx, job.RemoteID, a.trackingCallbacks(job, cb))
	if err != nil {
		a.settleFailed(ctx, job, err)
		metrics.RequestsTotal.WithLabelValues(string(job.Model), string(apierr.TypeOf(err))).Inc()
		return job, err
	}

	a.settle(ctx, job, final)

	metrics.RequestsTotal.WithLabelValues(string(job.Model), string(final.Status)).Inc()
	metrics.RequestLatency.WithLabelValues(string(job.Model)).Observe(time.Since(start).Seconds())
	return job, nil
}

// trackingCallbacks wraps caller callbacks with lifecycle bookkeeping.
func (a *App) trackingCallbacks(job *domain.Job, cb poller.Callbacks) poller.Callbacks {
	return poller.Callbacks{
		OnProgress: func(snap domain.StatusSnapshot) {
			if snap.Status == domain.JobStatusProcessing && job.Status == domain.JobStatusPending {
				if err := a.tracker.Transition(job.ID, domain.JobStatusProcessing, "server reports processing"); err == nil {
					job.Status = domain.JobStatusProcessing
				}
			}
			_ = a.tracker.Progress(job.ID, snap.Progress)

			if cb.OnProgress != nil {
				cb.OnProgress(snap)
			}
		},
		OnError: func(err error) {
			metrics.PollFailures.WithLabelValues(string(apierr.TypeOf(err))).Inc()
			if cb.OnError != nil {
				cb.OnError(err)
			}
		},
	}
}

// settle records a terminal snapshot in the tracker, the job store, and
// the history library.
func (a *App) settle(ctx context.Context, job *domain.Job, final *domain.StatusSnapshot) {
	reason := final.Message
	if reason == "" {
		reason = "server reports " + string(final.Status)
	}
	if err := a.tracker.Transition(job.ID, final.Status, reason); err != nil {
		a.log.Warn("Terminal transition rejected", "job", job.ID, "status", final.Status, "error", err)
	}
	_ = a.tracker.Release(job.ID)

	job.Status = final.Status
	job.Progress = final.Progress
	job.UpdatedAt = time.Now().UTC()
	if final.Status == domain.JobStatusFailed {
		job.Error = final.Message
	}
	if !final.CompletedAt.IsZero() {
		job.CompletedAt = final.CompletedAt
	} else {
		job.CompletedAt = job.UpdatedAt
	}

	if err := a.jobs.UpdateStatus(ctx, job.ID, job.Status, job.Progress, job.Error); err != nil {
		a.log.Warn("Failed to persist terminal status", "job", job.ID, "error", err)
	}

	rec := &domain.HistoryRecord{
		RemoteID:     job.RemoteID,
		Model:        job.Model,
		Prompt:       job.Prompt,
		Status:       job.Status,
		ArtifactURL:  final.ArtifactURL,
		CostEstimate: a.backends.EstimateCost(domain.GenerationRequest{Model: job.Model, Prompt: job.Prompt}),
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	}
	if err := a.history.Upsert(ctx, rec); err != nil {
		a.log.Warn("Failed to record history", "task", job.RemoteID, "error", err)
	}
}

// settleFailed marks a job whose poll loop died: cancellation settles as
// cancelled, anything else as failed.
func (a *App) settleFailed(ctx context.Context, job *domain.Job, pollErr error) {
	status := domain.JobStatusFailed
	if apierr.TypeOf(pollErr) == apierr.TypeCancelled {
		status = domain.JobStatusCancelled
	}

	if err := a.tracker.Transition(job.ID, status, pollErr.Error()); err != nil {
		a.log.Warn("Failure transition rejected", "job", job.ID, "error", err)
	}
	_ = a.tracker.Release(job.ID)

	job.Status = status
	job.Error = pollErr.Error()
	job.UpdatedAt = time.Now().UTC()
	job.CompletedAt = job.UpdatedAt

	if err := a.jobs.UpdateStatus(ctx, job.ID, status, job.Progress, job.Error); err != nil {
		a.log.Warn("Failed to persist failure", "job", job.ID, "error", err)
	}
}

// onStateChange logs every lifecycle transition and keeps the active-jobs
// gauge current.
func (a *App) onStateChange(jobID string, t lifecycle.Transition) {
	a.log.Info("Job state changed",
		"job", jobID,
		"from", t.From,
		"to", t.To,
		"reason", t.Reason)

	metrics.JobsActive.Set(float64(len(a.tracker.Active())))
}

// runMetricsUpdater refreshes queue and budget gauges every 10s.
func (a *App) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := a.client.QueueStats()
			metrics.QueueWaiting.Set(float64(stats.Waiting))
			metrics.QueueActive.Set(float64(stats.Active))

			usage := a.limiter.Usage()
			metrics.QuotaUsagePercent.Set(usage.UsagePercentage)
			metrics.SpendUsagePercent.Set(usage.SpendPercentage)

			for _, m := range []domain.Model{domain.ModelVideo, domain.ModelImage} {
				p := a.limiter.Prediction(m)
				metrics.QuotaExhaustionSeconds.WithLabelValues(string(m)).Set(p.TimeToExhaustion.Seconds())
			}

			metrics.JobsActive.Set(float64(len(a.tracker.Active())))
		}
	}
}

func modelLabel(m domain.Model) string {
	if m == "" {
		return string(domain.ModelVideo)
	}
	return string(m)
}
