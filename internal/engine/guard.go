package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Guard is the exclusive region protecting one sequence member of one
// object. Waiters are admitted in FIFO order.
type Guard struct {
	sem *semaphore.Weighted
}

// NewGuard creates an unheld guard.
func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the guard is held or ctx is done.
// On error the guard is not held.
func (g *Guard) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire takes the guard only if it is free.
func (g *Guard) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release frees the guard. Releasing an unheld guard panics.
func (g *Guard) Release() {
	g.sem.Release(1)
}
