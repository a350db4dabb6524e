package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
)

// DefaultVolume is the initial Volume of every session.
const DefaultVolume = 50

// errDetached is returned by session operations before Expose or Mirror.
var errDetached = errors.New("player session is not attached to a node")

// Session binds the Player members of one node.
//
// The host's session owns the queue. Every session records the tracks its
// own Play body ran for, which is how callers observe that a relayed call
// executed on a peer.
type Session struct {
	library *Library

	mu     sync.Mutex
	obj    *engine.Object
	queue  []*Track
	played []string
}

// NewSession creates a session resolving tracks against lib.
func NewSession(lib *Library) *Session {
	return &Session{library: lib}
}

// Library returns the session's track catalog.
func (s *Session) Library() *Library { return s.library }

// Registry binds the embedded schema to this session.
func (s *Session) Registry() (*registry.Snapshot, error) {
	spec, err := Schema()
	if err != nil {
		return nil, err
	}
	return registry.FromSpec(spec, registry.Bindings{
		Methods: map[string]registry.Invoker{
			MemberPlay: s.play,
		},
		Sequences: map[string]registry.Provider{
			MemberFetchQueue: s.fetchQueue,
		},
		Properties: map[string]ir.Value{
			MemberVolume:       ir.Scalar(DefaultVolume),
			MemberState:        Stopped.Value(),
			MemberCurrentTrack: Track{}.Record(),
		},
		Local: map[string]registry.Invoker{
			MethodClearQueue: s.clearQueue,
		},
		RefEqual: SameTrack,
	})
}

// Expose attaches the session as a new authoritative player on n.
func (s *Session) Expose(n *engine.Node) (*engine.Object, error) {
	return s.attach(func(reg *registry.Snapshot) (*engine.Object, error) { return n.Expose(reg) })
}

// Mirror attaches the session as a mirror of instanceID on n.
func (s *Session) Mirror(n *engine.Node, instanceID string) (*engine.Object, error) {
	return s.attach(func(reg *registry.Snapshot) (*engine.Object, error) { return n.Mirror(reg, instanceID) })
}

func (s *Session) attach(fn func(*registry.Snapshot) (*engine.Object, error)) (*engine.Object, error) {
	reg, err := s.Registry()
	if err != nil {
		return nil, err
	}
	obj, err := fn(reg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.obj != nil {
		obj.Close()
		return nil, errors.New("player session is already attached")
	}
	s.obj = obj
	return obj, nil
}

// Object returns the attached engine object, or nil.
func (s *Session) Object() *engine.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obj
}

func (s *Session) object() (*engine.Object, error) {
	if obj := s.Object(); obj != nil {
		return obj, nil
	}
	return nil, errDetached
}

// Play asks the player to start t. On a client the call is relayed to the
// host; the local body also runs and returns the started track.
func (s *Session) Play(ctx context.Context, t *Track) (Track, error) {
	obj, err := s.object()
	if err != nil {
		return Track{}, err
	}
	v, err := obj.Call(ctx, MemberPlay, t.Ref())
	if err != nil {
		return Track{}, err
	}
	return TrackFromValue(v)
}

// Volume returns the current volume.
func (s *Session) Volume() (int64, error) {
	obj, err := s.object()
	if err != nil {
		return 0, err
	}
	v, err := obj.Get(MemberVolume)
	if err != nil {
		return 0, err
	}
	return int64(v.(ir.Scalar)), nil
}

// SetVolume writes the volume on every peer.
func (s *Session) SetVolume(ctx context.Context, volume int64) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	return obj.Set(ctx, MemberVolume, ir.Scalar(volume))
}

// State returns the playback state.
func (s *Session) State() (PlaybackState, error) {
	obj, err := s.object()
	if err != nil {
		return Stopped, err
	}
	v, err := obj.Get(MemberState)
	if err != nil {
		return Stopped, err
	}
	return PlaybackState(v.(ir.Enum).Ordinal), nil
}

// Pause sets the playback state to Paused.
func (s *Session) Pause(ctx context.Context) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	return obj.Set(ctx, MemberState, Paused.Value())
}

// CurrentTrack returns the track the player last started. The zero Track
// means nothing has played yet.
func (s *Session) CurrentTrack() (Track, error) {
	obj, err := s.object()
	if err != nil {
		return Track{}, err
	}
	v, err := obj.Get(MemberCurrentTrack)
	if err != nil {
		return Track{}, err
	}
	return TrackFromValue(v)
}

// Enqueue appends tracks to the local queue and announces the new queue
// length.
func (s *Session) Enqueue(ctx context.Context, tracks ...*Track) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.queue = append(s.queue, tracks...)
	n := len(s.queue)
	s.mu.Unlock()

	_, err = obj.Call(ctx, MemberQueueChanged, ir.Scalar(n))
	return err
}

// Queue returns the local queue.
func (s *Session) Queue() []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Track, len(s.queue))
	for i, t := range s.queue {
		out[i] = *t
	}
	return out
}

// FetchQueue pages through the host's queue starting at offset.
func (s *Session) FetchQueue(ctx context.Context, offset int64) ([]Track, error) {
	obj, err := s.object()
	if err != nil {
		return nil, err
	}
	items, err := obj.Fetch(ctx, MemberFetchQueue, ir.Scalar(offset))
	if err != nil {
		return nil, err
	}
	out := make([]Track, 0, len(items))
	for _, item := range items {
		t, err := TrackFromValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ClearQueue empties the local queue without relaying anything but the
// resulting QueueChanged announcement.
func (s *Session) ClearQueue(ctx context.Context) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	_, err = obj.Call(ctx, MethodClearQueue)
	return err
}

// Seek is declared by the schema but not supported on any node.
func (s *Session) Seek(ctx context.Context) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	_, err = obj.Call(ctx, MemberSeek)
	return err
}

// Played returns the ids of the tracks this node's Play body ran for.
func (s *Session) Played() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}

// play is the Play body. It records the track and publishes it as the
// current track with the Playing state.
func (s *Session) play(ctx context.Context, args []ir.Value) (ir.Value, error) {
	ref, ok := args[0].(ir.Ref)
	if !ok {
		return nil, fmt.Errorf("play: argument is %T, want a track reference", args[0])
	}
	t, ok := ref.Target.(*Track)
	if !ok || t == nil {
		return nil, fmt.Errorf("play: reference target is %T, want *Track", ref.Target)
	}

	s.mu.Lock()
	s.played = append(s.played, t.ID)
	obj := s.obj
	s.mu.Unlock()

	rec := t.Record()
	if obj != nil {
		if err := obj.Set(ctx, MemberCurrentTrack, rec); err != nil {
			return nil, err
		}
		if err := obj.Set(ctx, MemberState, Playing.Value()); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// fetchQueue is the FetchQueue provider.
func (s *Session) fetchQueue(_ context.Context, args []ir.Value) ([]ir.Value, error) {
	offset := int64(args[0].(ir.Scalar))
	if offset < 0 {
		return nil, fmt.Errorf("fetch queue: negative offset %d", offset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= int64(len(s.queue)) {
		return []ir.Value{}, nil
	}
	items := make([]ir.Value, 0, int64(len(s.queue))-offset)
	for _, t := range s.queue[offset:] {
		items = append(items, t.Record())
	}
	return items, nil
}

// clearQueue is the ClearQueue local body.
func (s *Session) clearQueue(ctx context.Context, _ []ir.Value) (ir.Value, error) {
	s.mu.Lock()
	s.queue = nil
	obj := s.obj
	s.mu.Unlock()

	if obj != nil {
		if _, err := obj.Call(ctx, MemberQueueChanged, ir.Scalar(0)); err != nil {
			return nil, err
		}
	}
	return ir.Void{}, nil
}
