// Package control assembles the generation client, quota gate, storage,
// cache, and background workers into one runnable application.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/genflow/internal/core/config"
	"github.com/vietddude/genflow/internal/core/lifecycle"
	"github.com/vietddude/genflow/internal/core/worker"
	"github.com/vietddude/genflow/internal/generation/health"
	histsync "github.com/vietddude/genflow/internal/generation/history"
	"github.com/vietddude/genflow/internal/generation/poller"
	"github.com/vietddude/genflow/internal/infra/api"
	"github.com/vietddude/genflow/internal/infra/api/quota"
	"github.com/vietddude/genflow/internal/infra/backend"
	redisclient "github.com/vietddude/genflow/internal/infra/redis"
	"github.com/vietddude/genflow/internal/infra/storage"
	"github.com/vietddude/genflow/internal/infra/storage/memory"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
)

// App is the main application struct that manages the client lifecycle.
type App struct {
	cfg config.AppConfig

	client   *api.Client
	tracker  lifecycle.Tracker
	limiter  *quota.Limiter
	backends *backend.Registry

	jobs    storage.JobRepository
	history storage.HistoryRepository
	syncer  *histsync.Syncer
	pruner  *worker.Pruner

	healthMon    *health.Monitor
	healthServer *health.Server

	db          *postgres.DB
	redisClient *redisclient.Client
	cache       *redisclient.StatusCache

	log *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg config.AppConfig) (*App, error) {
	log := slog.Default().With("component", "app")

	app := &App{
		cfg:      cfg,
		backends: backend.NewRegistry(),
		tracker:  lifecycle.NewTracker(),
		log:      log,
	}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := connectDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		migrationsDir := cfg.Database.MigrationsDir
		if migrationsDir == "" {
			migrationsDir = "migrations"
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, migrationsDir); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		app.db = db
		app.jobs = postgres.NewJobRepo(db)
		app.history = postgres.NewHistoryRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		app.jobs = memory.NewJobStore()
		app.history = memory.NewHistoryStore()
		log.Info("Using Memory storage")
	}

	// 2. Redis status cache (optional)
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, status cache disabled", "error", err)
		} else {
			app.redisClient = rc
			app.cache = redisclient.NewStatusCache(rc, cfg.Redis.SnapshotTTL)
			log.Info("Status cache enabled")
		}
	}

	// 3. Quota gate
	quotaTracker := quota.NewTracker(cfg.Budget.DailyQuota, cfg.Budget.DailyCost)
	app.limiter = quota.NewLimiter(quotaTracker, app.backends.EstimateCost, cfg.Budget.Strict)
	app.limiter.SetAlertCallback(func(level quota.AlertLevel, usage quota.UsageStats) {
		log.Warn("Budget alert",
			"level", level.String(),
			"calls", usage.TotalCalls,
			"usage_percent", fmt.Sprintf("%.0f", usage.UsagePercentage),
			"spend_percent", fmt.Sprintf("%.0f", usage.SpendPercentage),
			"resets_at", usage.NextResetAt.Format(time.RFC3339))
	})

	// 4. API client
	app.client = api.NewClient(api.Config{
		BaseURL:               cfg.API.BaseURL,
		APIKey:                cfg.API.Key,
		MaxConcurrentRequests: cfg.Client.MaxConcurrentRequests,
		MaxPromptLength:       cfg.Client.MaxPromptLength,
		Timeout:               cfg.Client.Timeout,
		MaxRetries:            cfg.Client.MaxRetries,
		InitialDelay:          cfg.Client.InitialDelay,
		MaxDelay:              cfg.Client.MaxDelay,
		BackoffMultiplier:     cfg.Client.BackoffMultiplier,
		MaxRetryAfter:         cfg.Client.MaxRetryAfter,
		Poll: poller.Config{
			InitialInterval:       cfg.Poll.InitialInterval,
			MinInterval:           cfg.Poll.MinInterval,
			MaxInterval:           cfg.Poll.MaxInterval,
			Adaptive:              cfg.Poll.Adaptive,
			AccelerationThreshold: cfg.Poll.AccelerationThreshold,
			MaxFailures:           cfg.Poll.MaxFailures,
		},
	})
	app.client.SetGate(app.limiter)
	if app.cache != nil {
		app.client.SetStatusCache(app.cache)
	}

	// 5. Lifecycle tracking feeds persistence and metrics
	app.tracker.SetStateChangeCallback(app.onStateChange)

	// 6. Background workers
	app.syncer = histsync.NewSyncer(histsync.Config{
		Interval: cfg.History.SyncInterval,
		Limit:    cfg.History.SyncLimit,
	}, app.client, app.jobs, app.history, slog.Default())
	app.pruner = worker.NewPruner(cfg.History.RetentionPeriod, app.history, slog.Default())

	// 7. Health monitoring
	deps := health.Deps{
		QueueStats:      app.client.QueueStats,
		TransportHealth: app.client.Health,
		Usage:           app.limiter.Usage,
	}
	if app.db != nil {
		deps.StorageCheck = app.db.Health
	}
	if app.redisClient != nil {
		deps.CacheCheck = app.redisClient.Health
	}
	app.healthMon = health.NewMonitor(deps)
	app.healthServer = health.NewServer(app.healthMon, cfg.Server.Port)

	return app, nil
}

// connectDB dials PostgreSQL with fibonacci backoff so the app survives
// the database coming up after it does.
func connectDB(ctx context.Context, cfg postgres.Config) (*postgres.DB, error) {
	var db *postgres.DB

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		db, err = postgres.NewDB(ctx, cfg)
		if err != nil {
			slog.Warn("Database not ready, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Start launches the health server and background workers. It does not
// block; cancel ctx and call Stop to shut down.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	go func() {
		if err := a.syncer.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("History syncer failed", "error", err)
		}
	}()

	go a.pruner.Start(ctx)
	go a.runMetricsUpdater(ctx)

	a.log.Info("Application started", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts everything down. Waiting queue entries settle with
// cancelled_error; in-flight requests finish first.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping application...")

	if err := a.client.Close(); err != nil {
		a.log.Warn("Failed to close client", "error", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}

	return a.healthServer.Stop(ctx)
}

// Client exposes the underlying API client for direct calls.
func (a *App) Client() *api.Client { return a.client }

// Jobs exposes the job repository.
func (a *App) Jobs() storage.JobRepository { return a.jobs }

// History exposes the history repository.
func (a *App) History() storage.HistoryRepository { return a.history }

// Usage reports current budget consumption.
func (a *App) Usage() quota.UsageStats { return a.limiter.Usage() }
