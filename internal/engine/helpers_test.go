package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
	"github.com/roach88/mirror/internal/transport"
)

const waitWindow = 2 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// peer is one node of a test group with a single attached object.
type peer struct {
	node    *Node
	link    *transport.Endpoint
	obj     *Object
	changes <-chan Change
	events  *eventLog
}

// eventLog records relay events for assertions.
type eventLog struct {
	mu     sync.Mutex
	events []RelayEvent
}

func (l *eventLog) Observe(ev RelayEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) count(outcome Outcome) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Outcome == outcome {
			n++
		}
	}
	return n
}

// startNode creates a node on hub and runs its dispatch loop for the
// duration of the test.
func startNode(t *testing.T, hub *transport.Hub, mode ir.Mode, opts ...Option) (*Node, *transport.Endpoint, *eventLog) {
	t.Helper()
	link := hub.Attach()
	events := &eventLog{}
	opts = append([]Option{WithLogger(quietLogger()), WithObserver(events)}, opts...)
	n, err := NewNode(mode, link, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = n.Close()
		_ = link.Close()
	})
	return n, link, events
}

// join starts a node and attaches reg. An empty instanceID exposes a new
// authoritative instance; otherwise the node mirrors that instance.
func join(t *testing.T, hub *transport.Hub, mode ir.Mode, reg *registry.Snapshot, instanceID string, opts ...Option) *peer {
	t.Helper()
	n, link, events := startNode(t, hub, mode, opts...)

	var obj *Object
	var err error
	if instanceID == "" {
		obj, err = n.Expose(reg)
	} else {
		obj, err = n.Mirror(reg, instanceID)
	}
	require.NoError(t, err)

	ch := make(chan Change, 256)
	obj.Subscribe(func(c Change) { ch <- c })
	return &peer{node: n, link: link, obj: obj, changes: ch, events: events}
}

// widget declares one member of every relayed kind under direction dir,
// plus a bidirectional Barrier property used as a delivery barrier.
func widget(dir ir.Direction, pushes *atomic.Int32) *registry.Snapshot {
	return registry.New("Widget").
		Property("Level", dir, ir.Sync(ir.ShapeScalar), ir.Scalar(0)).
		Method("Push", dir, []ir.Shape{ir.Sync(ir.ShapeScalar)}, ir.Sync(ir.ShapeScalar),
			func(_ context.Context, args []ir.Value) (ir.Value, error) {
				if pushes != nil {
					pushes.Add(1)
				}
				return args[0], nil
			}).
		Notifier("Announce", dir, ir.Sync(ir.ShapeScalar), nil).
		Unsupported("Seek", ir.DirectionBidirectional).
		Property("Barrier", ir.DirectionBidirectional, ir.Sync(ir.ShapeScalar), ir.Scalar(0)).
		MustBuild()
}

// awaitBarrier sets the barrier property on sender and collects every change the
// listener observed before the barrier arrived. Links are FIFO and each
// node applies envelopes in order, so anything sender relayed earlier has
// been applied by then.
func awaitBarrier(t *testing.T, sender, listener *peer) []Change {
	t.Helper()
	require.NoError(t, sender.obj.Set(context.Background(), "Barrier", ir.Scalar(1)))

	var seen []Change
	timeout := time.After(waitWindow)
	for {
		select {
		case c := <-listener.changes:
			if c.Member == "Barrier" && c.Remote {
				return seen
			}
			seen = append(seen, c)
		case <-timeout:
			t.Fatal("barrier never arrived")
			return nil
		}
	}
}

func hasChange(changes []Change, member string, v ir.Value) bool {
	for _, c := range changes {
		if c.Member == member && c.Remote && ir.Equal(c.Value, v, nil) {
			return true
		}
	}
	return false
}

func waitChange(t *testing.T, ch <-chan Change, member string) Change {
	t.Helper()
	timeout := time.After(waitWindow)
	for {
		select {
		case c := <-ch:
			if c.Member == member {
				return c
			}
		case <-timeout:
			t.Fatalf("no change for %s within %s", member, waitWindow)
			return Change{}
		}
	}
}
