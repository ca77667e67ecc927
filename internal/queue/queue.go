// Package queue implements the bounded StreamingQueue and fixed-size
// WorkerPool of spec.md §4.4, grounded on the channel-based worker pool
// pattern (jobs channel + context cancellation + WaitGroup drain) used
// for picon downloads in the reference daemon this gateway is built
// from.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/lee-jian-hui/tts-system/internal/log"
	"github.com/lee-jian-hui/tts-system/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("queue: full")

// WorkItem is the transient record pushed into the queue (spec.md §3,
// SessionWorkItem). It is consumed exactly once by a worker.
type WorkItem struct {
	SessionID string
	// Handle is the client-side transport handle the worker owns once
	// it dequeues this item; it is opaque to the queue itself.
	Handle any
}

// Handler processes one dequeued WorkItem to completion (success,
// failure, or client disconnect). It must not panic across the worker
// loop boundary; any panic is recovered and reported as a failure.
type Handler func(ctx context.Context, item WorkItem)

// Queue is a process-wide bounded FIFO of WorkItem with a fixed pool of
// workers draining it.
type Queue struct {
	items   chan WorkItem
	workers int
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	busyMu sync.Mutex
	busy   int

	startOnce sync.Once
	stopOnce  sync.Once
}

// New builds a queue with capacity qmax and nw workers. handler is
// invoked by every worker for each dequeued item.
func New(qmax, nw int, handler Handler) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		items:   make(chan WorkItem, qmax),
		workers: nw,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
	}
	metrics.QueueMaxSize.Set(float64(qmax))
	metrics.WorkersTotal.Set(float64(nw))
	return q
}

// Start launches the fixed worker pool. Safe to call at most once.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.workerLoop()
		}
	})
}

// Stop cancels the context passed to handlers and closes the queue to
// new items. Workers still hand every item already buffered to the
// handler, with the cancelled context, so each session can be driven to
// a terminal state; Stop waits for every worker to exit. Enqueue must
// not be called after Stop.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.cancel()
		close(q.items)
		q.wg.Wait()
	})
}

// Enqueue is non-blocking: it returns ErrQueueFull immediately if the
// queue is at capacity, rather than waiting for space (spec.md §4.4).
func (q *Queue) Enqueue(item WorkItem) error {
	select {
	case q.items <- item:
		metrics.QueueDepth.Set(float64(len(q.items)))
		return nil
	default:
		metrics.QueueFullTotal.Inc()
		return ErrQueueFull
	}
}

func (q *Queue) workerLoop() {
	defer q.wg.Done()
	for item := range q.items {
		metrics.QueueDepth.Set(float64(len(q.items)))
		q.runOne(item)
	}
}

func (q *Queue) runOne(item WorkItem) {
	q.busyMu.Lock()
	q.busy++
	metrics.WorkersBusy.Set(float64(q.busy))
	q.busyMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.WithComponent("worker").Error().
				Str("session_id", item.SessionID).
				Interface("panic", r).
				Msg("worker panic recovered")
		}
		q.busyMu.Lock()
		q.busy--
		metrics.WorkersBusy.Set(float64(q.busy))
		q.busyMu.Unlock()
	}()

	q.handler(q.ctx, item)
}

// Depth returns the current number of items waiting in the queue.
func (q *Queue) Depth() int { return len(q.items) }

// Busy returns the current number of workers actively running a handler.
func (q *Queue) Busy() int {
	q.busyMu.Lock()
	defer q.busyMu.Unlock()
	return q.busy
}
