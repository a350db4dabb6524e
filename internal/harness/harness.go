package harness

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
	"github.com/roach88/mirror/internal/testutil"
	"github.com/roach88/mirror/internal/transport"
)

const (
	subjectType   = "Subject"
	valueMember   = "Value"
	barrierMember = "Barrier"
	senderNode    = "sender"
)

// participant is one node of a scenario group with its attached object.
type participant struct {
	name    string
	node    *engine.Node
	link    *transport.Endpoint
	obj     *engine.Object
	changes chan engine.Change
}

// Run executes a scenario and returns its result.
//
// Execution is deterministic:
//   - the sender's node id is "sender" and its instance id "subject-1"
//   - listener node ids are their scenario names
//   - sequence numbers start at 1 on every node
//
// An error is returned only when the group could not be built or the
// barrier never reached a listener; expectation failures are reported in
// the result.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	reg, err := subject(scenario)
	if err != nil {
		return nil, fmt.Errorf("build subject: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scenario.timeout())
	defer cancel()

	hub := transport.NewHub()
	recorder := testutil.NewRecorder()
	logger := testutil.DiscardLogger()

	runCtx, stop := context.WithCancel(context.Background())
	g, runCtx := errgroup.WithContext(runCtx)

	var group []*participant
	defer func() {
		stop()
		_ = g.Wait()
		for _, p := range group {
			_ = p.node.Close()
			_ = p.link.Close()
		}
	}()

	start := func(name string, mode ir.Mode, opts ...engine.Option) (*participant, error) {
		link := hub.Attach()
		opts = append([]engine.Option{
			engine.WithNodeID(name),
			engine.WithLogger(logger),
			engine.WithObserver(recorder),
		}, opts...)
		n, err := engine.NewNode(mode, link, opts...)
		if err != nil {
			_ = link.Close()
			return nil, fmt.Errorf("node %s: %w", name, err)
		}
		p := &participant{name: name, node: n, link: link, changes: make(chan engine.Change, 64)}
		group = append(group, p)
		g.Go(func() error {
			if err := n.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		return p, nil
	}

	sender, err := start(senderNode, scenario.Sender,
		engine.WithTokenGenerator(testutil.NewSequenceGenerator("subject")))
	if err != nil {
		return nil, err
	}
	if sender.obj, err = sender.node.Expose(reg); err != nil {
		return nil, fmt.Errorf("expose: %w", err)
	}

	listeners := make([]*participant, 0, len(scenario.Listeners))
	for _, l := range scenario.Listeners {
		p, err := start(l.Name, l.Mode)
		if err != nil {
			return nil, err
		}
		if p.obj, err = p.node.Mirror(reg, sender.obj.InstanceID()); err != nil {
			return nil, fmt.Errorf("mirror on %s: %w", l.Name, err)
		}
		ch := p.changes
		p.obj.Subscribe(func(c engine.Change) {
			select {
			case ch <- c:
			default:
			}
		})
		listeners = append(listeners, p)
	}

	if err := actuate(ctx, scenario, sender.obj); err != nil {
		return nil, fmt.Errorf("sender %s %s: %w", scenario.Member, valueMember, err)
	}
	// Links are FIFO and every node applies envelopes in order, so once
	// the barrier arrives everything the sender relayed before it has
	// been applied.
	if err := sender.obj.Set(ctx, barrierMember, ir.Scalar(1)); err != nil {
		return nil, fmt.Errorf("set barrier: %w", err)
	}

	result := NewResult()
	want := ir.Scalar(scenario.Value)
	for i, p := range listeners {
		changes, err := untilBarrier(ctx, p.changes)
		if err != nil {
			return nil, fmt.Errorf("listener %s: %w", p.name, err)
		}
		got := relayed(changes, want)
		result.Relayed[p.name] = got

		expected := scenario.Listeners[i]
		if got != expected.Relayed {
			result.AddError(fmt.Sprintf("listener %s (%s): relayed=%t, expected %t",
				p.name, expected.Mode, got, expected.Relayed))
		}
	}

	result.Trace = collectTrace(recorder.Events(), group)
	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(a, result.Trace); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// subject builds the scenario's object type: the member under test plus
// a bidirectional barrier property.
func subject(s *Scenario) (*registry.Snapshot, error) {
	scalar := ir.Sync(ir.ShapeScalar)
	b := registry.New(subjectType)
	switch s.Member {
	case MemberProperty:
		b.Property(valueMember, s.Direction, scalar, ir.Scalar(0))
	case MemberActor:
		b.Method(valueMember, s.Direction, []ir.Shape{scalar}, scalar,
			func(_ context.Context, args []ir.Value) (ir.Value, error) {
				return args[0], nil
			})
	case MemberNotifier:
		b.Notifier(valueMember, s.Direction, scalar, nil)
	default:
		return nil, fmt.Errorf("unknown member kind %q", s.Member)
	}
	b.Property(barrierMember, ir.DirectionBidirectional, scalar, ir.Scalar(0))
	return b.Build()
}

func actuate(ctx context.Context, s *Scenario, obj *engine.Object) error {
	v := ir.Scalar(s.Value)
	if s.Member == MemberProperty {
		return obj.Set(ctx, valueMember, v)
	}
	_, err := obj.Call(ctx, valueMember, v)
	return err
}

// untilBarrier collects changes until the remote barrier write arrives.
func untilBarrier(ctx context.Context, ch <-chan engine.Change) ([]engine.Change, error) {
	var seen []engine.Change
	for {
		select {
		case c := <-ch:
			if c.Member == barrierMember && c.Remote {
				return seen, nil
			}
			seen = append(seen, c)
		case <-ctx.Done():
			return nil, fmt.Errorf("barrier not delivered: %w", ctx.Err())
		}
	}
}

func relayed(changes []engine.Change, want ir.Value) bool {
	for _, c := range changes {
		if c.Member == valueMember && c.Remote && ir.Equal(c.Value, want, nil) {
			return true
		}
	}
	return false
}

// collectTrace groups events per node in group order, excluding the
// barrier. Events from one node are already in that node's order.
func collectTrace(events []engine.RelayEvent, group []*participant) []TraceEvent {
	trace := []TraceEvent{}
	for _, p := range group {
		for _, ev := range events {
			if ev.Node == p.name && ev.Envelope.Member != barrierMember {
				trace = append(trace, traceEvent(ev))
			}
		}
	}
	return trace
}
