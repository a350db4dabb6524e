package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/mirror/internal/engine"
)

// Recorder is an engine.Observer that keeps every relay event in memory.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	events []engine.RelayEvent
	notify chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Observe implements engine.Observer.
func (r *Recorder) Observe(ev engine.RelayEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of the recorded events in observation order.
func (r *Recorder) Events() []engine.RelayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.RelayEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events match node and outcome. An empty node
// matches every node.
func (r *Recorder) Count(node string, outcome engine.Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if (node == "" || ev.Node == node) && ev.Outcome == outcome {
			n++
		}
	}
	return n
}

// WaitFor blocks until cond holds for the recorded events or ctx is done.
func (r *Recorder) WaitFor(ctx context.Context, cond func([]engine.RelayEvent) bool) error {
	// A ticker covers events recorded between the check and the wait.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond(r.Events()) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notify:
		case <-ticker.C:
		}
	}
}

// Reset discards every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var _ engine.Observer = (*Recorder)(nil)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
