package player

import (
	"fmt"
	"sync"

	"github.com/roach88/mirror/internal/codec"
	"github.com/roach88/mirror/internal/ir"
)

// Enumeration and record type names used by the schema.
const (
	StateType = "PlaybackState"
	TrackType = "Track"
)

// PlaybackState is the discriminant of the State property.
type PlaybackState int64

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("PlaybackState(%d)", int64(s))
	}
}

// Value returns the enumeration value of s.
func (s PlaybackState) Value() ir.Enum {
	return ir.Enum{Type: StateType, Ordinal: int64(s)}
}

// Track is one playable item.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms"`
}

// Record returns the value-record form of t.
func (t Track) Record() ir.Record {
	return ir.Record{
		Type: TrackType,
		Fields: ir.Object{
			"id":          ir.String(t.ID),
			"title":       ir.String(t.Title),
			"artist":      ir.String(t.Artist),
			"duration_ms": ir.Int(t.DurationMs),
		},
	}
}

// Ref returns a reference to t.
func (t *Track) Ref() ir.Ref {
	return ir.Ref{Type: TrackType, Target: t}
}

// TrackFromValue converts a Track record back to a Track.
func TrackFromValue(v ir.Value) (Track, error) {
	rec, ok := v.(ir.Record)
	if !ok || rec.Type != TrackType {
		return Track{}, fmt.Errorf("not a %s record: %T", TrackType, v)
	}
	var t Track
	var err error
	if t.ID, err = stringField(rec.Fields, "id"); err != nil {
		return Track{}, err
	}
	if t.Title, err = stringField(rec.Fields, "title"); err != nil {
		return Track{}, err
	}
	if t.Artist, err = stringField(rec.Fields, "artist"); err != nil {
		return Track{}, err
	}
	d, ok := rec.Fields["duration_ms"].(ir.Int)
	if !ok {
		return Track{}, fmt.Errorf("track field duration_ms: want integer, got %T", rec.Fields["duration_ms"])
	}
	t.DurationMs = int64(d)
	return t, nil
}

func stringField(fields ir.Object, name string) (string, error) {
	s, ok := fields[name].(ir.String)
	if !ok {
		return "", fmt.Errorf("track field %s: want string, got %T", name, fields[name])
	}
	return string(s), nil
}

// SameTrack compares track references by id rather than pointer identity,
// so references decoded on different nodes compare equal.
func SameTrack(a, b ir.Ref) bool {
	ta, okA := a.Target.(*Track)
	tb, okB := b.Target.(*Track)
	if !okA || !okB || ta == nil || tb == nil {
		return false
	}
	return ta.ID == tb.ID
}

// Library is the catalog of tracks known to a node. Track references
// travel as ids and are resolved against the receiving node's library.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Library struct {
	mu     sync.RWMutex
	tracks map[string]*Track
	order  []string
}

// NewLibrary creates a library holding tracks in the given order.
// Later duplicates of an id are ignored.
func NewLibrary(tracks ...Track) *Library {
	l := &Library{tracks: make(map[string]*Track, len(tracks))}
	for _, t := range tracks {
		l.Add(t)
	}
	return l
}

// Add inserts t unless its id is already present and returns the
// library's copy.
func (l *Library) Add(t Track) *Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.tracks[t.ID]; ok {
		return existing
	}
	stored := t
	l.tracks[t.ID] = &stored
	l.order = append(l.order, t.ID)
	return &stored
}

// Lookup returns the track with the given id.
func (l *Library) Lookup(id string) (*Track, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tracks[id]
	return t, ok
}

// Tracks returns every track in insertion order.
func (l *Library) Tracks() []*Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Track, len(l.order))
	for i, id := range l.order {
		out[i] = l.tracks[id]
	}
	return out
}

// ReferenceCodec encodes track references as their id.
func (l *Library) ReferenceCodec() codec.ReferenceCodec {
	return codec.ReferenceCodec{
		Encode: func(target any) ([]byte, error) {
			t, ok := target.(*Track)
			if !ok || t == nil {
				return nil, fmt.Errorf("track reference: unexpected target %T", target)
			}
			return []byte(t.ID), nil
		},
		Decode: func(data []byte) (any, error) {
			t, ok := l.Lookup(string(data))
			if !ok {
				return nil, fmt.Errorf("track reference: unknown track %q", data)
			}
			return t, nil
		},
	}
}

// NewCodec returns a JSON codec that can carry track references.
func NewCodec(lib *Library) (*codec.JSON, error) {
	c := codec.NewJSON()
	if err := c.RegisterReference(TrackType, lib.ReferenceCodec()); err != nil {
		return nil, err
	}
	return c, nil
}

// DemoTracks is the catalog served by the mirror command.
func DemoTracks() []Track {
	return []Track{
		{ID: "harbor", Title: "Harbor Lights", Artist: "Low Tide", DurationMs: 214000},
		{ID: "glass", Title: "Glass Hours", Artist: "Low Tide", DurationMs: 187500},
		{ID: "meridian", Title: "Meridian", Artist: "Parallax Choir", DurationMs: 302000},
		{ID: "static", Title: "Static Bloom", Artist: "Parallax Choir", DurationMs: 158000},
	}
}
