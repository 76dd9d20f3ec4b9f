package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/genflow/internal/control"
	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/generation/poller"
)

var (
	genModel    string
	genDuration int
	genRes      string
	genPriority string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Submit a generation request and wait for the result",
	Args:  cobra.ExactArgs(1),
	Run:   runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genModel, "model", string(domain.ModelVideo), "model family (veo-video or imagen-image)")
	generateCmd.Flags().IntVar(&genDuration, "duration", 0, "video duration in seconds (video only)")
	generateCmd.Flags().StringVar(&genRes, "resolution", "", "output resolution (854x480, 1280x720, 1920x1080)")
	generateCmd.Flags().StringVar(&genPriority, "priority", string(domain.PriorityNormal), "queue priority (high, normal, low)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := control.NewApp(ctx, *cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Stop(context.Background())
	}()

	req := domain.GenerationRequest{
		Prompt:          args[0],
		Model:           domain.Model(genModel),
		DurationSeconds: genDuration,
		Resolution:      genRes,
	}
	opts := domain.RequestOptions{Priority: domain.Priority(genPriority)}

	fmt.Printf("Submitting %s request...\n", genModel)

	job, err := app.Generate(ctx, req, opts, poller.Callbacks{
		OnProgress: func(snap domain.StatusSnapshot) {
			fmt.Printf("  %s: %.0f%%\n", snap.Status, snap.Progress)
		},
		OnError: func(err error) {
			fmt.Printf("  poll error: %v\n", err)
		},
	})
	if err != nil {
		slog.Error("Generation failed", "error", err)
		os.Exit(1)
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		fmt.Printf("Done. Job %s completed (task %s)\n", job.ID, job.RemoteID)
	default:
		fmt.Printf("Job %s ended in %s: %s\n", job.ID, job.Status, job.Error)
	}

	usage := app.Usage()
	fmt.Printf("Budget: %d/%d calls today, $%.2f/$%.2f spent\n",
		usage.TotalCalls, usage.DailyLimit, usage.SpentToday, usage.DailySpendLimit)
}
