// Package poller watches a remote generation job until it reaches a
// terminal state.
//
// A failed status query is surfaced through the error callback and the
// loop simply waits for the next scheduled tick; the poller never runs
// a query through the retry controller. Only a run of consecutive
// failures aborts the poll.
package poller

import (
	"context"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

// StatusFunc fetches one status snapshot for a remote job.
type StatusFunc func(ctx context.Context, remoteID string) (*domain.StatusSnapshot, error)

// Callbacks observe the poll. Either field may be nil.
type Callbacks struct {
	// OnProgress fires after every successful query, including the
	// terminal one.
	OnProgress func(domain.StatusSnapshot)

	// OnError fires after every failed query with the classified error.
	OnError func(error)
}

// Poller drives repeated status queries with adaptive spacing.
type Poller struct {
	fetch  StatusFunc
	config Config
}

func New(fetch StatusFunc, config Config) *Poller {
	return &Poller{fetch: fetch, config: config.withDefaults()}
}

// Poll queries remoteID until the reported status is terminal and
// returns the final snapshot. Cancelling ctx stops the loop at the next
// suspension point with cancelled_error and no further callbacks.
//
// A job that finishes in status failed is still a successful poll: the
// snapshot is returned with a nil error and the caller inspects Status.
func (p *Poller) Poll(ctx context.Context, remoteID string, cb Callbacks) (*domain.StatusSnapshot, error) {
	interval := NewAdaptiveInterval(p.config)

	var lastProgress float64
	failures := 0

	for {
		snap, err := p.fetch(ctx, remoteID)
		switch {
		case err != nil:
			if apierr.TypeOf(err) == apierr.TypeCancelled {
				return nil, err
			}

			failures++
			if cb.OnError != nil {
				cb.OnError(err)
			}
			if failures >= p.config.MaxFailures {
				return nil, err
			}

		default:
			failures = 0
			lastProgress = snap.Progress
			if cb.OnProgress != nil {
				cb.OnProgress(*snap)
			}
			if snap.Status.Terminal() {
				return snap, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, apierr.FromTransportError(ctx, ctx.Err())
		case <-time.After(interval.Next(lastProgress)):
		}
	}
}
