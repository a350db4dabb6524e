package registry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/ir"
)

func echo(_ context.Context, args []ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		return ir.Void{}, nil
	}
	return args[0], nil
}

func items(_ context.Context, _ []ir.Value) ([]ir.Value, error) {
	return []ir.Value{ir.Scalar(1), ir.Scalar(2)}, nil
}

func playerBuilder() *Builder {
	return New("Player").
		Method("Play", ir.DirectionBidirectional, []ir.Shape{ir.Sync(ir.ShapeScalar)}, ir.Sync(ir.ShapeScalar), echo).
		AsyncMethod("Load", ir.DirectionClientToHost, nil, ir.RecordOf("Track"), echo).
		Notifier("QueueChanged", ir.DirectionHostToClient, ir.Sync(ir.ShapeScalar), nil).
		Sequence("FetchQueue", ir.DirectionOutboundHost, nil, ir.Sync(ir.ShapeScalar), items).
		Unsupported("Seek", ir.DirectionBidirectional).
		Property("Volume", ir.DirectionBidirectional, ir.Sync(ir.ShapeScalar), ir.Scalar(50)).
		Local("Describe", echo)
}

func TestBuild(t *testing.T) {
	snap, err := playerBuilder().Build()
	require.NoError(t, err)

	assert.Equal(t, "Player", snap.Type())

	names := make([]string, 0)
	for _, m := range snap.Members() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Play", "Load", "QueueChanged", "FetchQueue", "Seek", "Volume"}, names)

	load, ok := snap.Lookup("Load")
	require.True(t, ok)
	assert.Equal(t, ir.RecordOf("Track").Async(), load.Spec.Result)
	assert.Equal(t, ir.CategoryActor, load.Spec.Category)

	notify, ok := snap.Lookup("QueueChanged")
	require.True(t, ok)
	assert.Equal(t, ir.CategoryNotifier, notify.Spec.Category)
	assert.Equal(t, []ir.Shape{ir.Sync(ir.ShapeScalar)}, notify.Spec.Params)

	seq, ok := snap.Lookup("FetchQueue")
	require.True(t, ok)
	assert.True(t, seq.Spec.Result.Deferred)

	vol, ok := snap.Lookup("Volume")
	require.True(t, ok)
	assert.Equal(t, ir.Scalar(50), vol.Initial)

	_, ok = snap.Lookup("Describe")
	assert.False(t, ok)
	_, ok = snap.Local("Describe")
	assert.True(t, ok)
}

func TestBuild_Spec(t *testing.T) {
	snap := New("Counter").
		Property("Count", ir.DirectionBidirectional, ir.Sync(ir.ShapeScalar), ir.Scalar(0)).
		MustBuild()

	want := ir.ObjectSpec{
		Type: "Counter",
		Members: []ir.MemberSpec{{
			Name:      "Count",
			Kind:      ir.KindProperty,
			Category:  ir.CategoryProperty,
			Direction: ir.DirectionBidirectional,
			Result:    ir.Sync(ir.ShapeScalar),
		}},
	}
	if diff := cmp.Diff(want, snap.Spec()); diff != "" {
		t.Errorf("Spec() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ReportsEveryProblem(t *testing.T) {
	_, err := New("Broken").
		Method("Play", ir.DirectionBidirectional, nil, ir.Sync(ir.ShapeScalar), nil).
		Method("Play", ir.DirectionBidirectional, nil, ir.Sync(ir.ShapeScalar), echo).
		Sequence("Fetch", ir.Direction(77), nil, ir.Sync(ir.ShapeNone), nil).
		Property("Volume", ir.DirectionBidirectional, ir.Sync(ir.ShapeScalar).Async(), ir.Scalar(1)).
		Property("State", ir.DirectionBidirectional, ir.EnumOf("State"), ir.Scalar(1)).
		Property("Track", ir.DirectionBidirectional, ir.RecordOf("Track"), nil).
		Local("Play", echo).
		Build()
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Broken", ce.Type)

	msg := err.Error()
	for _, want := range []string{
		"duplicate member name",
		"actor requires an implementation",
		"unrecognized direction",
		"sequence items cannot have shape none",
		"sequence requires a provider",
		"properties cannot have a deferred shape",
		"does not conform to shape enumeration State",
		"property requires an initial value",
		"both as a local method and a relayed member",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestBuild_LocalProblems(t *testing.T) {
	_, err := New("Player").Local("Describe", nil).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local method requires an implementation")
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() { New("").MustBuild() })
}

type track struct{ id string }

func TestSnapshot_Equal(t *testing.T) {
	a, b := &track{"t1"}, &track{"t1"}

	byIdentity := New("Queue").MustBuild()
	assert.False(t, byIdentity.Equal(ir.Ref{Type: "Track", Target: a}, ir.Ref{Type: "Track", Target: b}))

	byID := New("Queue").RefEqual(func(x, y ir.Ref) bool {
		return x.Target.(*track).id == y.Target.(*track).id
	}).MustBuild()
	assert.True(t, byID.Equal(ir.Ref{Type: "Track", Target: a}, ir.Ref{Type: "Track", Target: b}))
	assert.True(t, byID.Equal(ir.Scalar(3), ir.Scalar(3)))
}
