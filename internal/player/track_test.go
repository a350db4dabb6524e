package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/ir"
)

func TestTrackFromValue(t *testing.T) {
	want := Track{ID: "t9", Title: "Nine", Artist: "Band", DurationMs: 1000}
	got, err := TrackFromValue(want.Record())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTrackFromValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		v    ir.Value
		want string
	}{
		{"scalar", ir.Scalar(1), "not a Track record"},
		{"other record", ir.Record{Type: "Album", Fields: ir.Object{}}, "not a Track record"},
		{"missing id", ir.Record{Type: TrackType, Fields: ir.Object{}}, "track field id"},
		{"bad duration", ir.Record{Type: TrackType, Fields: ir.Object{
			"id": ir.String("a"), "title": ir.String("b"), "artist": ir.String("c"),
			"duration_ms": ir.String("long"),
		}}, "track field duration_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrackFromValue(tt.v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary(tracks()...)
	dup := lib.Add(Track{ID: "t1", Title: "Other"})
	assert.Equal(t, "Intro", dup.Title)

	ids := []string{}
	for _, tr := range lib.Tracks() {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)

	_, ok := lib.Lookup("missing")
	assert.False(t, ok)
}

func TestLibrary_ReferenceCodec(t *testing.T) {
	lib := NewLibrary(tracks()...)
	c, err := NewCodec(lib)
	require.NoError(t, err)

	t2, _ := lib.Lookup("t2")
	raw, err := c.Encode(ir.RefOf(TrackType), t2.Ref())
	require.NoError(t, err)

	v, err := c.Decode(ir.RefOf(TrackType), raw)
	require.NoError(t, err)
	assert.Same(t, t2, v.(ir.Ref).Target)

	other := NewLibrary(Track{ID: "t1"})
	oc, err := NewCodec(other)
	require.NoError(t, err)
	_, err = oc.Decode(ir.RefOf(TrackType), raw)
	assert.ErrorContains(t, err, `unknown track "t2"`)
}

func TestSameTrack(t *testing.T) {
	a := &Track{ID: "x"}
	b := &Track{ID: "x"}
	c := &Track{ID: "y"}

	assert.True(t, SameTrack(a.Ref(), b.Ref()))
	assert.False(t, SameTrack(a.Ref(), c.Ref()))
	assert.False(t, SameTrack(a.Ref(), ir.Ref{Type: TrackType, Target: "x"}))
}

func TestPlaybackState(t *testing.T) {
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, ir.Enum{Type: StateType, Ordinal: 2}, Paused.Value())
	assert.Equal(t, "PlaybackState(7)", PlaybackState(7).String())
}

func TestDemoTracks_UniqueIDs(t *testing.T) {
	lib := NewLibrary(DemoTracks()...)
	assert.Len(t, lib.Tracks(), len(DemoTracks()))
	for _, tr := range DemoTracks() {
		got, ok := lib.Lookup(tr.ID)
		require.True(t, ok, tr.ID)
		assert.Equal(t, tr, *got)
	}
}
