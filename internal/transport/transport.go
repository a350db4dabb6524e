// Package transport moves envelopes between nodes.
//
// The engine only depends on the Transport interface. Two implementations
// live here: an in-memory Hub for tests and in-process groups, and a
// WebSocket star (one server node, many client nodes) for cross-process use.
//
// Every implementation broadcasts: an envelope sent by one attached node is
// delivered to every other attached node and never back to the sender.
// Receivers decide for themselves whether to act on it. Envelopes sent by
// one node arrive at each peer in the order they were sent.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/mirror/internal/ir"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// Handler receives inbound envelopes. Handlers run on the transport's
// delivery goroutine and should hand work off rather than block.
type Handler func(env ir.Envelope)

// Transport is the engine's view of the link to its peers.
type Transport interface {
	// Send broadcasts env to every attached peer. A nil error means the
	// envelope was handed to the link, not that any peer applied it.
	Send(ctx context.Context, env ir.Envelope) error

	// OnReceive registers h for inbound envelopes and returns a function
	// that unregisters it.
	OnReceive(h Handler) (cancel func())

	// Close detaches from the link. Further sends fail with ErrClosed.
	Close() error
}

// handlers is an ordered, concurrency-safe list of receive callbacks.
type handlers struct {
	mu     sync.RWMutex
	nextID int
	ids    []int
	fns    map[int]Handler
}

func (hs *handlers) add(h Handler) (cancel func()) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.fns == nil {
		hs.fns = make(map[int]Handler)
	}
	id := hs.nextID
	hs.nextID++
	hs.ids = append(hs.ids, id)
	hs.fns[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			hs.mu.Lock()
			defer hs.mu.Unlock()
			delete(hs.fns, id)
			for i, existing := range hs.ids {
				if existing == id {
					hs.ids = append(hs.ids[:i], hs.ids[i+1:]...)
					break
				}
			}
		})
	}
}

// dispatch invokes every handler in registration order. The handler list
// is copied first so a handler may cancel itself.
func (hs *handlers) dispatch(env ir.Envelope) {
	hs.mu.RLock()
	fns := make([]Handler, 0, len(hs.ids))
	for _, id := range hs.ids {
		fns = append(fns, hs.fns[id])
	}
	hs.mu.RUnlock()

	for _, fn := range fns {
		fn(env)
	}
}

func (hs *handlers) len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.ids)
}
