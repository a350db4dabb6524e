package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/roach88/mirror/internal/ir"
)

// Hub is an in-memory broadcast group.
//
// Delivery is synchronous: Send returns after every peer's handlers have
// run. Each peer receives its own deep copy of the envelope.
type Hub struct {
	mu        sync.RWMutex
	endpoints []*Endpoint
}

// NewHub creates an empty broadcast group.
func NewHub() *Hub {
	return &Hub{}
}

// Attach adds a new endpoint to the group.
func (h *Hub) Attach() *Endpoint {
	e := &Endpoint{hub: h}
	h.mu.Lock()
	h.endpoints = append(h.endpoints, e)
	h.mu.Unlock()
	return e
}

// Len returns the number of attached endpoints.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.endpoints)
}

func (h *Hub) detach(e *Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.endpoints {
		if existing == e {
			h.endpoints = append(h.endpoints[:i], h.endpoints[i+1:]...)
			return
		}
	}
}

func (h *Hub) peersOf(sender *Endpoint) []*Endpoint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := make([]*Endpoint, 0, len(h.endpoints))
	for _, e := range h.endpoints {
		if e != sender {
			peers = append(peers, e)
		}
	}
	return peers
}

// Endpoint is one node's attachment to a Hub.
type Endpoint struct {
	hub      *Hub
	handlers handlers
	closed   atomic.Bool
	sent     atomic.Int64
}

var _ Transport = (*Endpoint)(nil)

// Send delivers env to every other endpoint of the hub.
func (e *Endpoint) Send(ctx context.Context, env ir.Envelope) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.sent.Add(1)
	for _, peer := range e.hub.peersOf(e) {
		if peer.closed.Load() {
			continue
		}
		peer.handlers.dispatch(env.Clone())
	}
	return nil
}

// OnReceive implements Transport.
func (e *Endpoint) OnReceive(h Handler) (cancel func()) {
	return e.handlers.add(h)
}

// Close detaches the endpoint from its hub. Close is idempotent.
func (e *Endpoint) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.hub.detach(e)
	return nil
}

// Sent returns the number of envelopes this endpoint has sent.
func (e *Endpoint) Sent() int64 {
	return e.sent.Load()
}
