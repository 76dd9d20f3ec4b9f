package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/generation/poller"
	"github.com/vietddude/genflow/internal/generation/validate"
	"github.com/vietddude/genflow/internal/infra/api/queue"
	"github.com/vietddude/genflow/internal/infra/api/retry"
	"github.com/vietddude/genflow/internal/infra/api/transport"
	"github.com/vietddude/genflow/internal/infra/backend"
)

// Gate is consulted before each dispatch. Implementations enforce daily
// request and spend budgets; a nil gate admits everything.
type Gate interface {
	// Allow returns a classified error when the request must not be
	// dispatched.
	Allow(req domain.GenerationRequest) error

	// Record notes a successfully submitted request.
	Record(req domain.GenerationRequest)

	// ThrottleDelay returns how long to pause before dispatching, used
	// to slow submissions as the daily budget fills up.
	ThrottleDelay() time.Duration
}

// StatusCache stores recent status snapshots. A nil cache means every
// Status call hits the backend.
type StatusCache interface {
	GetSnapshot(ctx context.Context, remoteID string) (*domain.StatusSnapshot, error)
	SetSnapshot(ctx context.Context, snap *domain.StatusSnapshot) error
}

// Config holds client construction parameters. Credentials and base URL
// are injected here; the client owns no environment variables of its
// own.
type Config struct {
	BaseURL string
	APIKey  string

	MaxConcurrentRequests int
	MaxPromptLength       int

	// Per-call defaults, overridable via RequestOptions.
	Timeout           time.Duration
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	MaxRetryAfter     time.Duration

	Poll poller.Config
}

// Client is the high-level interface to the generation service.
// This is what application layers should use.
type Client struct {
	exec       transport.Executor
	validator  *validate.Validator
	dispatcher *queue.Dispatcher
	backends   *backend.Registry
	gate       Gate
	cache      StatusCache

	retryCfg retry.Config
	pollCfg  poller.Config
	timeout  time.Duration

	log *slog.Logger
}

// NewClient creates a client against cfg.BaseURL.
func NewClient(cfg Config) *Client {
	return NewClientWithExecutor(cfg, transport.NewHTTPExecutor(cfg.BaseURL, cfg.APIKey, cfg.Timeout))
}

// NewClientWithExecutor creates a client over a caller-supplied
// executor.
func NewClientWithExecutor(cfg Config, exec transport.Executor) *Client {
	retryCfg := retry.Config{
		MaxRetries:      cfg.MaxRetries,
		InitialDelay:    cfg.InitialDelay,
		MaxDelay:        cfg.MaxDelay,
		BackoffMultiple: cfg.BackoffMultiplier,
		MaxRetryAfter:   cfg.MaxRetryAfter,
	}
	if cfg.MaxRetries <= 0 {
		retryCfg.MaxRetries = retry.DefaultConfig.MaxRetries
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		exec:       exec,
		validator:  validate.New(validate.Limits{MaxPromptLength: cfg.MaxPromptLength}),
		dispatcher: queue.NewDispatcher(cfg.MaxConcurrentRequests),
		backends:   backend.NewRegistry(),
		retryCfg:   retryCfg,
		pollCfg:    cfg.Poll,
		timeout:    timeout,
		log:        slog.Default().With("component", "api"),
	}
}

// SetGate installs a quota gate consulted before every dispatch.
func (c *Client) SetGate(g Gate) {
	c.gate = g
}

// SetStatusCache installs a read-through cache for Status calls.
func (c *Client) SetStatusCache(cache StatusCache) {
	c.cache = cache
}

// SetMaxConcurrent adjusts the global dispatch cap at runtime.
func (c *Client) SetMaxConcurrent(n int) {
	c.dispatcher.SetLimit(n)
}

// Generate validates req and submits it under the concurrency cap,
// blocking until the backend accepts or the attempt settles with a
// classified error. An invalid request fails here with zero network
// calls.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest, opts domain.RequestOptions) (*domain.Job, error) {
	req = c.validator.Normalize(req)
	if err := c.validator.Validate(req); err != nil {
		return nil, err
	}

	payload, err := c.backends.Payload(req)
	if err != nil {
		return nil, err
	}

	if c.gate != nil {
		if err := c.gate.Allow(req); err != nil {
			return nil, err
		}
	}

	priority := opts.Priority
	if !priority.Valid() {
		priority = domain.PriorityNormal
	}

	retryCfg, reqTimeout := c.callConfig(opts)

	result, err := c.dispatcher.Submit(ctx, priority, func(taskCtx context.Context) (any, error) {
		if c.gate != nil {
			if delay := c.gate.ThrottleDelay(); delay > 0 {
				select {
				case <-time.After(delay):
				case <-taskCtx.Done():
					return nil, apierr.FromTransportError(taskCtx, taskCtx.Err())
				}
			}
		}

		resp, err := retry.Do(taskCtx, c.exec, transport.Request{
			Method:  "POST",
			Path:    pathGenerate,
			Body:    payload,
			Timeout: reqTimeout,
		}, retryCfg)
		if err != nil {
			return nil, err
		}

		var parsed generateResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, apierr.Network("decode submit response", err)
		}
		if parsed.remoteID() == "" {
			return nil, apierr.Server("submit response missing task id", "UNKNOWN", "", "")
		}
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}

	parsed := result.(generateResponse)
	if c.gate != nil {
		c.gate.Record(req)
	}

	now := time.Now().UTC()
	status := parsed.Status
	if status == "" {
		status = domain.JobStatusPending
	}
	job := &domain.Job{
		ID:        uuid.New().String(),
		RemoteID:  parsed.remoteID(),
		Model:     req.Model,
		Prompt:    req.Prompt,
		Priority:  priority,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.log.Info("generation submitted",
		"job", job.ID,
		"task", job.RemoteID,
		"model", job.Model,
		"priority", job.Priority)

	return job, nil
}

// Status fetches one snapshot of a remote job. Exactly one exchange: no
// retry, so the poller's tick schedule stays the only pacing. With a
// cache installed, a fresh snapshot short-circuits the fetch.
func (c *Client) Status(ctx context.Context, remoteID string) (*domain.StatusSnapshot, error) {
	if c.cache != nil {
		// Cache errors degrade to a direct fetch.
		if snap, err := c.cache.GetSnapshot(ctx, remoteID); err == nil && snap != nil {
			return snap, nil
		}
	}

	resp, err := c.exec.Do(ctx, transport.Request{
		Method:  "GET",
		Path:    statusPath(remoteID),
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, err
	}

	var snap domain.StatusSnapshot
	if err := json.Unmarshal(resp.Body, &snap); err != nil {
		return nil, apierr.Network("decode status response", err)
	}
	if snap.RemoteID == "" {
		snap.RemoteID = remoteID
	}

	if c.cache != nil {
		if err := c.cache.SetSnapshot(ctx, &snap); err != nil {
			c.log.Debug("status cache write failed", "task", remoteID, "error", err)
		}
	}
	return &snap, nil
}

// Poll watches remoteID until terminal, with the client's polling
// configuration.
func (c *Client) Poll(ctx context.Context, remoteID string, cb poller.Callbacks) (*domain.StatusSnapshot, error) {
	return poller.New(c.Status, c.pollCfg).Poll(ctx, remoteID, cb)
}

// GenerateAndWait submits req and then polls until the job settles. The
// returned job reflects the terminal snapshot, including a failed one.
func (c *Client) GenerateAndWait(ctx context.Context, req domain.GenerationRequest, opts domain.RequestOptions, cb poller.Callbacks) (*domain.Job, error) {
	job, err := c.Generate(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	final, err := c.Poll(ctx, job.RemoteID, cb)
	if err != nil {
		return job, err
	}

	job.Status = final.Status
	job.Progress = final.Progress
	job.UpdatedAt = time.Now().UTC()
	if final.Status == domain.JobStatusFailed {
		job.Error = final.Message
	}
	if !final.CompletedAt.IsZero() {
		job.CompletedAt = final.CompletedAt
	} else if final.Status.Terminal() {
		job.CompletedAt = job.UpdatedAt
	}
	return job, nil
}

// GenerateBatch submits several requests concurrently. Individual
// failures land in their BatchItem; the error return fires only when
// the whole batch is torn down by ctx.
func (c *Client) GenerateBatch(ctx context.Context, reqs []domain.GenerationRequest, opts domain.RequestOptions) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			job, err := c.Generate(ctx, req, opts)
			items[i] = BatchItem{Job: job, Err: err}
			// Individual failures do not sink the batch; the dispatcher
			// already bounds how many run at once.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	return items, nil
}

// History fetches up to limit prior results. Idempotent read, retried
// under the same policy as submissions.
func (c *Client) History(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := retry.Do(ctx, c.exec, transport.Request{
		Method:  "GET",
		Path:    pathHistory,
		Query:   q,
		Timeout: c.timeout,
	}, c.retryCfg)
	if err != nil {
		return nil, err
	}

	var records []domain.HistoryRecord
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return nil, apierr.Network("decode history response", err)
	}
	return records, nil
}

// QueueStats reports current dispatch occupancy.
func (c *Client) QueueStats() queue.Stats {
	return c.dispatcher.Stats()
}

// Health reports transport-level health.
func (c *Client) Health() transport.HealthStatus {
	return c.exec.Health()
}

// Close drains the queue and releases transport resources. Waiting
// entries settle with cancelled_error; running requests finish.
func (c *Client) Close() error {
	c.dispatcher.Close()
	return c.exec.Close()
}

// callConfig resolves per-call options against client defaults.
func (c *Client) callConfig(opts domain.RequestOptions) (retry.Config, time.Duration) {
	cfg := c.retryCfg
	// Zero means unset; a negative value requests no retries at all and
	// is clamped to 0 by the retry loop.
	if opts.MaxRetries != 0 {
		cfg.MaxRetries = opts.MaxRetries
	}
	if opts.InitialDelay > 0 {
		cfg.InitialDelay = opts.InitialDelay
	}
	if opts.BackoffMultiplier > 0 {
		cfg.BackoffMultiple = opts.BackoffMultiplier
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	return cfg, timeout
}
