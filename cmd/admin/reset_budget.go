// Command reset_budget clears the daily quota counters held in Redis.
// Useful in development after changing budget limits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vietddude/genflow/internal/core/domain"
	redisclient "github.com/vietddude/genflow/internal/infra/redis"
)

func main() {
	redisURL := flag.String("redis", os.Getenv("GENFLOW_REDIS_URL"), "redis connection URL")
	flag.Parse()

	if *redisURL == "" {
		fmt.Fprintln(os.Stderr, "redis URL required (--redis or GENFLOW_REDIS_URL)")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(redisclient.Config{URL: *redisURL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	cache := redisclient.NewStatusCache(client, 0)

	for _, model := range []domain.Model{domain.ModelVideo, domain.ModelImage} {
		if n, err := cache.QuotaCount(ctx, model); err == nil && n > 0 {
			fmt.Printf("%s: %d call(s) recorded today\n", model, n)
		}
	}

	deleted, err := cache.ResetQuota(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reset quota counters: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully reset %d quota counter(s)\n", deleted)
}
