package engine

import (
	"context"
	"sync"

	"github.com/roach88/mirror/internal/ir"
)

// Future is the eventual result of an invocation.
//
// Synchronous members return an already resolved future; deferred members
// resolve when their body finishes. Callers await both the same way.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value ir.Value
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(v ir.Value, err error) *Future {
	f := newFuture()
	f.resolve(v, err)
	return f
}

func (f *Future) resolve(v ir.Value, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done.
// Abandoning the wait does not cancel the underlying body.
func (f *Future) Await(ctx context.Context) (ir.Value, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
