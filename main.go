package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/generation/poller"
	"github.com/vietddude/genflow/internal/infra/api"
	"github.com/vietddude/genflow/internal/infra/api/quota"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	API_URL := os.Getenv("GENFLOW_API_URL")
	API_KEY := os.Getenv("GENFLOW_API_KEY")
	if API_URL == "" {
		log.Fatalf("GENFLOW_API_URL is not set")
	}
	if API_KEY == "" {
		log.Fatalf("GENFLOW_API_KEY is not set")
	}

	ctx := context.Background()

	// 1. Create client
	client := api.NewClient(api.Config{
		BaseURL:               API_URL,
		APIKey:                API_KEY,
		MaxConcurrentRequests: 3,
		Timeout:               30 * time.Second,
		MaxRetries:            3,
	})
	defer client.Close()

	// 2. Setup daily budget gate
	tracker := quota.NewTracker(100, 25.0)
	limiter := quota.NewLimiter(tracker, nil, false)
	limiter.SetAlertCallback(func(level quota.AlertLevel, usage quota.UsageStats) {
		fmt.Printf("⚠️  Budget alert (%s): %.0f%% used\n", level, usage.UsagePercentage)
	})
	client.SetGate(limiter)

	fmt.Println("=== Submitting Generation Request ===")

	// 3. Generate and wait, printing progress as it comes in
	job, err := client.GenerateAndWait(ctx, domain.GenerationRequest{
		Prompt:          "a red fox crossing a snowy field at dawn",
		Model:           domain.ModelVideo,
		DurationSeconds: 10,
		Resolution:      "1280x720",
	}, domain.RequestOptions{
		Priority: domain.PriorityHigh,
	}, poller.Callbacks{
		OnProgress: func(snap domain.StatusSnapshot) {
			fmt.Printf("  %s: %.0f%%\n", snap.Status, snap.Progress)
		},
		OnError: func(err error) {
			log.Printf("  poll error: %v", err)
		},
	})
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	fmt.Printf("Job %s finished: %s\n", job.ID, job.Status)

	// 4. Show recent history
	fmt.Println("\n=== Recent History ===")
	records, err := client.History(ctx, 5)
	if err != nil {
		log.Printf("History fetch failed: %v", err)
	}
	for _, rec := range records {
		fmt.Printf("  %s [%s] %s\n", rec.RemoteID, rec.Status, rec.Prompt)
	}

	// 5. Show queue and budget usage
	stats := client.QueueStats()
	fmt.Printf("\nQueue: %d active, %d waiting, %d completed\n",
		stats.Active, stats.Waiting, stats.Completed)

	usage := limiter.Usage()
	fmt.Printf("Total calls made: %d / %d (%.1f%%)\n",
		usage.TotalCalls, usage.DailyLimit, usage.UsagePercentage)
}
