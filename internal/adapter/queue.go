package adapter

import (
	"sync"
	"time"

	"github.com/roach88/catalog/internal/name"
	"github.com/roach88/catalog/internal/querysql"
	"github.com/roach88/catalog/internal/reply"
)

// job is one accepted query waiting for backend execution.
type job struct {
	request        name.Name
	responsePrefix name.Name
	translation    querysql.Translation
}

// completion is the outcome of executing a job. Exactly one of segments
// and err is set.
type completion struct {
	job      job
	segments []reply.Segment
	err      error
	elapsed  time.Duration
}

// completionQueue is an unbounded FIFO of completions.
//
// Workers enqueue from any goroutine; the publisher loop dequeues. The
// signal channel has a buffer of one so repeated enqueues coalesce into a
// single wakeup, and it is closed by Close to release the loop.
type completionQueue struct {
	mu     sync.Mutex
	items  []completion
	closed bool
	signal chan struct{}
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{
		items:  make([]completion, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends c. Returns false if the queue is closed.
func (q *completionQueue) Enqueue(c completion) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, c)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front completion without blocking.
func (q *completionQueue) TryDequeue() (completion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return completion{}, false
	}
	c := q.items[0]

	// Release the segments held by the slot.
	q.items[0] = completion{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return c, true
}

// Wait returns a channel that signals when completions may be available.
func (q *completionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued completions.
func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drained reports whether the queue is closed and empty.
func (q *completionQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.items) == 0
}

// Close stops further enqueues and wakes the publisher loop.
func (q *completionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
