package engine

import (
	"sync"

	"github.com/roach88/mirror/internal/ir"
)

// inboundQueue is a thread-safe FIFO of envelopes awaiting dispatch.
//
// The transport's delivery goroutine enqueues; the node's Run loop
// dequeues. The queue is unbounded so a transport handler never blocks
// on a slow dispatch loop.
//
// A buffered signal channel lets the Run loop wait for work and for
// context cancellation in the same select.
type inboundQueue struct {
	mu     sync.Mutex
	items  []ir.Envelope
	closed bool
	signal chan struct{} // Buffered, size 1; closed by Close
}

func newInboundQueue() *inboundQueue {
	return &inboundQueue{
		items:  make([]ir.Envelope, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends env. Returns false if the queue is closed.
func (q *inboundQueue) Enqueue(env ir.Envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, env)

	// Non-blocking: one pending signal covers any number of enqueues.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front envelope without blocking.
func (q *inboundQueue) TryDequeue() (ir.Envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return ir.Envelope{}, false
	}
	env := q.items[0]

	// Clear the slot so the backing array does not pin payload buffers.
	q.items[0] = ir.Envelope{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return env, true
}

// Wait returns a channel that fires when envelopes may be available,
// and is closed when the queue is closed.
func (q *inboundQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued envelopes.
func (q *inboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *inboundQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes the waiter.
func (q *inboundQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
