package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/mirror/internal/codec"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
	"github.com/roach88/mirror/internal/transport"
)

// DefaultBatchSize is the number of sequence items per batch envelope.
const DefaultBatchSize = 16

// DefaultContextID is the correlation context of nodes created without
// WithContextID.
const DefaultContextID = "default"

// Node is one participant in a relay group.
//
// Thread-safety model:
//   - Expose, Mirror, Lookup and every Object operation: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - inbound envelopes are applied only by the Run goroutine
type Node struct {
	id        string
	contextID string
	mode      ir.Mode
	roles     ir.RoleSet
	link      transport.Transport
	codec     codec.Codec
	logger    *slog.Logger
	clock     *Clock
	tokens    TokenGenerator
	batchSize int
	observers []Observer
	queue     *inboundQueue
	unsub     func()

	mu      sync.RWMutex
	objects map[string]*Object
	pending map[string]*pendingFetch
	closed  bool
}

// Option configures a Node.
type Option func(*Node)

// WithNodeID sets the node id carried as the sender of every envelope.
// Default: a fresh UUIDv7.
func WithNodeID(id string) Option {
	return func(n *Node) { n.id = id }
}

// WithContextID sets the context component of correlation identities.
// Nodes only correlate objects created under the same context id.
func WithContextID(id string) Option {
	return func(n *Node) { n.contextID = id }
}

// WithLogger sets the node's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) { n.logger = l }
}

// WithCodec sets the payload codec. Default: codec.NewJSON().
func WithCodec(c codec.Codec) Option {
	return func(n *Node) { n.codec = c }
}

// WithBatchSize sets how many sequence items a responder packs into one
// batch envelope. Values below 1 are ignored.
func WithBatchSize(size int) Option {
	return func(n *Node) {
		if size > 0 {
			n.batchSize = size
		}
	}
}

// WithObserver adds an observer of relay events. Observers are called in
// the order they were added.
func WithObserver(o Observer) Option {
	return func(n *Node) { n.observers = append(n.observers, o) }
}

// WithTokenGenerator sets the generator for instance ids and fetch
// request tokens. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(n *Node) { n.tokens = g }
}

// WithClock sets the logical clock stamping outbound envelopes.
func WithClock(c *Clock) Option {
	return func(n *Node) { n.clock = c }
}

// NewNode creates a node with a fixed mode, attached to link.
//
// The node subscribes to the transport immediately; inbound envelopes are
// queued until Run is started.
func NewNode(mode ir.Mode, link transport.Transport, opts ...Option) (*Node, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("new node: invalid mode %q", mode)
	}
	if link == nil {
		return nil, errors.New("new node: transport is required")
	}

	n := &Node{
		contextID: DefaultContextID,
		mode:      mode,
		roles:     mode.Roles(),
		link:      link,
		clock:     NewClock(),
		tokens:    UUIDv7Generator{},
		batchSize: DefaultBatchSize,
		queue:     newInboundQueue(),
		objects:   make(map[string]*Object),
		pending:   make(map[string]*pendingFetch),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.codec == nil {
		n.codec = codec.NewJSON()
	}
	if n.id == "" {
		n.id = n.tokens.Generate()
	}
	n.logger = n.logger.With("node", n.id)

	n.unsub = link.OnReceive(n.receive)
	return n, nil
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// ContextID returns the correlation context id.
func (n *Node) ContextID() string { return n.contextID }

// Mode returns the node's fixed mode.
func (n *Node) Mode() ir.Mode { return n.mode }

// Roles returns the role set granted by the node's mode.
func (n *Node) Roles() ir.RoleSet { return n.roles }

// Clock returns the node's logical clock.
func (n *Node) Clock() *Clock { return n.clock }

// QueueLen returns the number of inbound envelopes awaiting dispatch.
func (n *Node) QueueLen() int { return n.queue.Len() }

// receive is the transport handler. It only enqueues.
func (n *Node) receive(env ir.Envelope) {
	if env.Sender == n.id {
		return
	}
	if !n.queue.Enqueue(env) {
		n.logger.Debug("dropping envelope after close", "envelope", env.ID, "kind", env.Kind)
	}
}

// Run starts the dispatch loop and blocks until ctx is cancelled or the
// node is stopped.
//
// ERROR HANDLING: an envelope that cannot be applied is logged with its
// full context and the loop moves on to the next one. One bad envelope
// never stops the node.
func (n *Node) Run(ctx context.Context) error {
	n.logger.Info("node starting", "mode", n.mode, "context", n.contextID)

	for {
		env, ok := n.queue.TryDequeue()
		if ok {
			if err := n.dispatch(ctx, env); err != nil {
				n.logEnvelopeError(env, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			n.logger.Info("node stopping: context cancelled")
			n.queue.Close()
			return ctx.Err()

		case <-n.queue.Wait():
			// A stale signal can fire with an empty queue; only a closed
			// and drained queue ends the loop.
			if n.queue.Len() == 0 && n.queue.Closed() {
				n.logger.Info("node stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the inbound queue, which makes Run return once the queue
// is drained.
func (n *Node) Stop() {
	n.queue.Close()
}

// Close unsubscribes from the transport, stops the dispatch loop and
// closes every attached object. Close does not close the transport.
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	objects := make([]*Object, 0, len(n.objects))
	for _, o := range n.objects {
		objects = append(objects, o)
	}
	n.mu.Unlock()

	n.unsub()
	n.Stop()
	for _, o := range objects {
		o.Close()
	}
	return nil
}

// Expose attaches an authoritative instance of reg's type under a freshly
// generated instance id.
func (n *Node) Expose(reg *registry.Snapshot) (*Object, error) {
	return n.attach(reg, n.tokens.Generate())
}

// Mirror attaches a local mirror of a remote instance whose instance id
// is already known.
func (n *Node) Mirror(reg *registry.Snapshot, instanceID string) (*Object, error) {
	return n.attach(reg, instanceID)
}

func (n *Node) attach(reg *registry.Snapshot, instanceID string) (*Object, error) {
	if reg == nil {
		return nil, errors.New("attach: registry is required")
	}
	id, err := ir.CorrelationID(n.contextID, reg.Type(), instanceID)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", reg.Type(), err)
	}

	obj := newObject(n, reg, instanceID, id)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, newError(ErrCodeClosed, id, "", "node is closed")
	}
	if _, dup := n.objects[id]; dup {
		return nil, newError(ErrCodeIdentityMismatch, id, "", "object already attached to this node")
	}
	n.objects[id] = obj

	n.logger.Debug("object attached", "correlation", id, "type", reg.Type(), "instance", instanceID)
	return obj, nil
}

func (n *Node) detach(o *Object) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.objects[o.id] == o {
		delete(n.objects, o.id)
		n.logger.Debug("object detached", "correlation", o.id)
	}
}

// Lookup returns the attached object with the given correlation id.
func (n *Node) Lookup(correlation string) (*Object, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	o, ok := n.objects[correlation]
	return o, ok
}

// newEnvelope stamps an outbound envelope with this node's identity.
func (n *Node) newEnvelope(kind ir.EnvelopeKind, correlation, member string) ir.Envelope {
	seq := n.clock.Next()
	return ir.Envelope{
		ID:          ir.EnvelopeID(n.id, seq),
		Version:     ir.ProtocolVersion,
		Kind:        kind,
		Correlation: correlation,
		Member:      member,
		Sender:      n.id,
		SenderRoles: n.roles,
		Seq:         seq,
	}
}

// send hands env to the transport. Failures are logged and observed;
// relay callers ignore the returned error because a relay failure must not
// fail the local operation.
func (n *Node) send(ctx context.Context, env ir.Envelope) error {
	if err := n.link.Send(ctx, env); err != nil {
		n.logger.Warn("relay send failed",
			"envelope", env.ID,
			"kind", env.Kind,
			"correlation", env.Correlation,
			"member", env.Member,
			"error", err,
		)
		n.observe(OutcomeSendFailed, env, err.Error())
		return err
	}
	n.logger.Debug("envelope sent",
		"envelope", env.ID,
		"kind", env.Kind,
		"correlation", env.Correlation,
		"member", env.Member,
		"seq", env.Seq,
	)
	n.observe(OutcomeSent, env, "")
	return nil
}

func (n *Node) observe(outcome Outcome, env ir.Envelope, reason string) {
	if len(n.observers) == 0 {
		return
	}
	ev := RelayEvent{Node: n.id, Outcome: outcome, Envelope: env, Reason: reason}
	for _, o := range n.observers {
		o.Observe(ev)
	}
}

// dispatch routes one inbound envelope.
// CRITICAL: called only from the Run goroutine.
func (n *Node) dispatch(ctx context.Context, env ir.Envelope) error {
	if env.Version != ir.ProtocolVersion {
		n.observe(OutcomeRejected, env, "protocol version")
		return fmt.Errorf("protocol version %q, want %q", env.Version, ir.ProtocolVersion)
	}

	switch env.Kind {
	case ir.EnvelopeBatch, ir.EnvelopeEnd:
		return n.applyResponse(env)
	case ir.EnvelopeCall, ir.EnvelopeProperty, ir.EnvelopeFetch:
	default:
		n.observe(OutcomeRejected, env, "unknown kind")
		return fmt.Errorf("unknown envelope kind %q", env.Kind)
	}

	obj, ok := n.Lookup(env.Correlation)
	if !ok {
		// Peers may be at different lifecycle stages; not an error.
		n.logger.Debug("dropping envelope: no local object",
			"envelope", env.ID,
			"correlation", env.Correlation,
			"member", env.Member,
			"sender", env.Sender,
		)
		n.observe(OutcomeDropped, env, "identity mismatch")
		return nil
	}

	var err error
	switch env.Kind {
	case ir.EnvelopeCall:
		err = obj.applyCall(ctx, env)
	case ir.EnvelopeProperty:
		err = obj.applyProperty(env)
	case ir.EnvelopeFetch:
		err = obj.serveFetch(ctx, env)
	}
	return err
}

// reject records an envelope that disagrees with the local descriptor.
func (n *Node) reject(env ir.Envelope, err error) error {
	n.observe(OutcomeRejected, env, err.Error())
	return err
}

// logEnvelopeError logs a dispatch failure with full envelope context.
// Shape mismatches indicate version skew between nodes and are logged at
// error level.
func (n *Node) logEnvelopeError(env ir.Envelope, err error) {
	attrs := []any{
		"error", err,
		"envelope", env.ID,
		"kind", env.Kind,
		"correlation", env.Correlation,
		"member", env.Member,
		"sender", env.Sender,
		"seq", env.Seq,
	}
	var re *RuntimeError
	if errors.As(err, &re) && re.Code != ErrCodeShapeMismatch && re.Code != ErrCodeUnknownMember {
		n.logger.Warn("envelope not applied", attrs...)
		return
	}
	n.logger.Error("envelope rejected", attrs...)
}
