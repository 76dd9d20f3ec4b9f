package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/genflow/internal/core/config"
	redisclient "github.com/vietddude/genflow/internal/infra/redis"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recently tracked generation jobs",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "max jobs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	if cfg.Database.URL == "" {
		if cfg.Redis.URL != "" {
			runStatusFromCache(ctx, cfg)
			return
		}
		fmt.Println("No database configured; job tracking requires database.url or redis.url")
		os.Exit(1)
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	jobs, err := postgres.NewJobRepo(db).ListRecent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to list jobs", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TASK\tMODEL\tSTATUS\tPROGRESS\tUPDATED")

	for _, job := range jobs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
			job.RemoteID, job.Model, job.Status, job.Progress,
			job.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}

// runStatusFromCache lists recently submitted tasks from the Redis
// recent-jobs list when no database is configured. Snapshots may have
// expired; those tasks show as unknown.
func runStatusFromCache(ctx context.Context, cfg *config.AppConfig) {
	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	cache := redisclient.NewStatusCache(client, cfg.Redis.SnapshotTTL)
	ids, err := cache.Recent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to list recent jobs", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TASK\tSTATUS\tPROGRESS")

	for _, id := range ids {
		snap, err := cache.GetSnapshot(ctx, id)
		if err != nil || snap == nil {
			_, _ = fmt.Fprintf(w, "%s\tunknown\t-\n", id)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0f%%\n", id, snap.Status, snap.Progress)
	}
	_ = w.Flush()
}
