// Package queue bounds concurrent backend dispatches and orders waiting
// submissions by priority.
//
// Dispatch is non-preemptive: once a task starts it runs to completion
// even if higher-priority work arrives. Waiting tasks are ordered by
// (priority rank, arrival); cancelling one settles it locally without
// the task ever running.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("queue closed")

// Task is one unit of backend work. It receives the submitter's context
// and must honor its cancellation.
type Task func(ctx context.Context) (any, error)

type settled struct {
	result any
	err    error
}

type entry struct {
	seq      uint64
	rank     int
	enqueued time.Time
	index    int // heap position, -1 once dispatched or removed
	ctx      context.Context
	task     Task
	done     chan settled
}

// Dispatcher owns the concurrency cap. The active counter is touched
// only under the mutex: incremented at dispatch, decremented exactly
// once when the task settles.
type Dispatcher struct {
	mu      sync.Mutex
	limit   int
	active  int
	waiting entryHeap
	seq     uint64
	closed  bool

	dispatched uint64
	completed  uint64
}

// NewDispatcher creates a dispatcher running at most limit tasks at
// once.
func NewDispatcher(limit int) *Dispatcher {
	if limit <= 0 {
		limit = 3
	}
	return &Dispatcher{limit: limit}
}

// Submit runs task under the concurrency cap, blocking the caller until
// the task settles. While the task is still waiting for a slot,
// cancelling ctx withdraws it: the entry settles with cancelled_error
// and the task never runs. Once dispatched the task runs to completion;
// cancellation is then the task's own concern via ctx.
func (d *Dispatcher) Submit(ctx context.Context, priority domain.Priority, task Task) (any, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}

	e := &entry{
		seq:      d.seq,
		rank:     priority.Rank(),
		enqueued: time.Now(),
		index:    -1,
		ctx:      ctx,
		task:     task,
		done:     make(chan settled, 1),
	}
	d.seq++

	// Waiting is non-empty only while every slot is busy, so a free slot
	// means immediate dispatch.
	if d.active < d.limit {
		d.dispatchLocked(e)
		d.mu.Unlock()
	} else {
		heap.Push(&d.waiting, e)
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			// A withdrawn entry never ran, so this is a cancellation even
			// when the token carried a deadline.
			if d.tryWithdraw(e) {
				return nil, apierr.Cancelled("withdrawn while queued")
			}
			// Lost the race: the entry was dispatched first. Fall through
			// and wait for the task itself to settle.
		case s := <-e.done:
			return s.result, s.err
		}
	}

	s := <-e.done
	return s.result, s.err
}

// tryWithdraw removes a still-queued entry. Returns false when the
// entry already left the heap for dispatch.
func (d *Dispatcher) tryWithdraw(e *entry) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e.index < 0 {
		return false
	}
	heap.Remove(&d.waiting, e.index)
	return true
}

func (d *Dispatcher) dispatchLocked(e *entry) {
	d.active++
	d.dispatched++
	go d.run(e)
}

func (d *Dispatcher) run(e *entry) {
	result, err := e.task(e.ctx)
	e.done <- settled{result: result, err: err}

	d.mu.Lock()
	d.active--
	d.completed++
	d.fillLocked()
	d.mu.Unlock()
}

func (d *Dispatcher) fillLocked() {
	for !d.closed && d.active < d.limit && d.waiting.Len() > 0 {
		e := heap.Pop(&d.waiting).(*entry)
		d.dispatchLocked(e)
	}
}

// SetLimit adjusts the concurrency cap. Raising it dispatches eligible
// waiters immediately; lowering it lets running tasks finish and only
// throttles future dispatch.
func (d *Dispatcher) SetLimit(limit int) {
	if limit <= 0 {
		return
	}
	d.mu.Lock()
	d.limit = limit
	d.fillLocked()
	d.mu.Unlock()
}

// Close rejects new submissions and settles every waiting entry with
// cancelled_error. Running tasks are left to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for d.waiting.Len() > 0 {
		e := heap.Pop(&d.waiting).(*entry)
		e.done <- settled{err: apierr.Cancelled("queue shut down")}
	}
}

// Stats is a point-in-time snapshot of queue occupancy.
type Stats struct {
	Limit      int
	Active     int
	Waiting    int
	Dispatched uint64
	Completed  uint64

	// LongestWait is the age of the oldest waiting entry.
	LongestWait time.Duration
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Limit:      d.limit,
		Active:     d.active,
		Waiting:    d.waiting.Len(),
		Dispatched: d.dispatched,
		Completed:  d.completed,
	}
	now := time.Now()
	for _, e := range d.waiting {
		if age := now.Sub(e.enqueued); age > s.LongestWait {
			s.LongestWait = age
		}
	}
	return s
}

// entryHeap orders entries by (rank, seq): higher priority first, FIFO
// within a tier.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
