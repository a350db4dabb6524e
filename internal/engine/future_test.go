package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/ir"
)

func TestFuture_Resolved(t *testing.T) {
	f := resolvedFuture(ir.Scalar(3), nil)

	select {
	case <-f.Done():
	default:
		t.Fatal("resolved future is not done")
	}
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.Scalar(3), v)
}

func TestFuture_FirstResolveWins(t *testing.T) {
	f := newFuture()
	boom := errors.New("boom")
	f.resolve(nil, boom)
	f.resolve(ir.Scalar(1), nil)

	_, err := f.Await(context.Background())
	assert.Same(t, boom, err)
}

func TestFuture_AwaitCancelled(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.resolve(ir.Scalar(2), nil)
	v, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.Scalar(2), v)
}
