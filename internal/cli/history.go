package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the local generation library",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "max records to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if cfg.Database.URL == "" {
		fmt.Println("No database configured; the history library requires database.url")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	recs, err := postgres.NewHistoryRepo(db).List(ctx, historyLimit)
	if err != nil {
		slog.Error("Failed to list history", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TASK\tMODEL\tSTATUS\tCOST\tCREATED\tARTIFACT")

	for _, rec := range recs {
		artifact := rec.ArtifactURL
		if artifact == "" {
			artifact = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%.2f\t%s\t%s\n",
			rec.RemoteID, rec.Model, rec.Status, rec.CostEstimate,
			rec.CreatedAt.Format("2006-01-02 15:04"), artifact)
	}
	_ = w.Flush()
}
