package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/engine"
)

func TestRecorder_CountAndReset(t *testing.T) {
	r := NewRecorder()
	r.Observe(engine.RelayEvent{Node: "a", Outcome: engine.OutcomeSent})
	r.Observe(engine.RelayEvent{Node: "b", Outcome: engine.OutcomeApplied})
	r.Observe(engine.RelayEvent{Node: "a", Outcome: engine.OutcomeSent})

	assert.Equal(t, 2, r.Count("a", engine.OutcomeSent))
	assert.Equal(t, 1, r.Count("", engine.OutcomeApplied))
	assert.Zero(t, r.Count("b", engine.OutcomeSent))
	assert.Len(t, r.Events(), 3)

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestRecorder_WaitFor(t *testing.T) {
	r := NewRecorder()
	go func() {
		time.Sleep(5 * time.Millisecond)
		r.Observe(engine.RelayEvent{Node: "b", Outcome: engine.OutcomeApplied})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := r.WaitFor(ctx, func(evs []engine.RelayEvent) bool { return len(evs) == 1 })
	require.NoError(t, err)
}

func TestRecorder_WaitForTimeout(t *testing.T) {
	r := NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.WaitFor(ctx, func(evs []engine.RelayEvent) bool { return false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
