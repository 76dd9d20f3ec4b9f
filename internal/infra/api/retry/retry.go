// Package retry drives repeated transport attempts with exponential
// backoff. Policy is decided entirely on classified error variants,
// never on raw status codes.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/infra/api/transport"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64

	// MaxRetryAfter bounds server-directed rate-limit waits. A 429 whose
	// Retry-After exceeds this is surfaced instead of waited out.
	MaxRetryAfter time.Duration
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries:      3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
	MaxRetryAfter:   2 * time.Minute,
}

// Action determines how to handle a classified error.
type Action int

const (
	ActionRetry Action = iota // Backoff, then try again
	ActionWait                // Rate limited: wait the server-directed interval
	ActionStop                // Permanent: surface immediately
)

// Classify determines the action for a classified error. The wait
// duration is meaningful only for ActionWait.
//
// Retried: network_error, timeout_error, transient server_error, and
// rate_limit_error carrying a bounded Retry-After. Everything else —
// validation_error, cancelled_error, permanent server_error, a 429
// without Retry-After — stops the loop.
func Classify(err error, maxRetryAfter time.Duration) (Action, time.Duration) {
	apiErr, ok := apierr.As(err)
	if !ok {
		return ActionStop, 0
	}

	switch apiErr.Type {
	case apierr.TypeNetwork, apierr.TypeTimeout:
		return ActionRetry, 0
	case apierr.TypeServer:
		if apiErr.TransientServer() {
			return ActionRetry, 0
		}
		return ActionStop, 0
	case apierr.TypeRateLimit:
		if apiErr.RetryAfter != nil && *apiErr.RetryAfter <= maxRetryAfter {
			return ActionWait, *apiErr.RetryAfter
		}
		return ActionStop, 0
	default:
		return ActionStop, 0
	}
}

// Do executes req against e until success, a permanent error, or
// exhaustion. MaxRetries counts retries, so the loop makes at most
// MaxRetries+1 attempts. On exhaustion the last error is returned
// unchanged along with its raw response.
func Do(ctx context.Context, e transport.Executor, req transport.Request, config Config) (*transport.Response, error) {
	config = normalize(config)

	var lastResp *transport.Response
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		resp, err := e.Do(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastResp, lastErr = resp, err

		action, wait := Classify(err, config.MaxRetryAfter)
		if action == ActionStop {
			return resp, err
		}
		if attempt == config.MaxRetries {
			break
		}

		delay := wait
		if action == ActionRetry {
			delay = backoffDelay(attempt, config)
		}

		select {
		case <-ctx.Done():
			return nil, apierr.FromTransportError(ctx, ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastResp, lastErr
}

func normalize(config Config) Config {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultConfig.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultConfig.MaxDelay
	}
	if config.BackoffMultiple <= 0 {
		config.BackoffMultiple = DefaultConfig.BackoffMultiple
	}
	if config.MaxRetryAfter <= 0 {
		config.MaxRetryAfter = DefaultConfig.MaxRetryAfter
	}
	return config
}

// backoffDelay returns the wait before retry attempt+1:
// InitialDelay * BackoffMultiple^attempt, capped at MaxDelay.
func backoffDelay(attempt int, config Config) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
