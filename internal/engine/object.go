package engine

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
)

// Change is a local change notification.
type Change struct {
	// Member is the method or property that changed.
	Member string

	// Value is the new property value, the actor's result or the value a
	// notifier announced.
	Value ir.Value

	// Remote is true when the change was applied from a peer's envelope.
	Remote bool

	// Sender is the originating node id.
	Sender string
}

// Listener receives change notifications.
type Listener func(Change)

type subscriber struct {
	id int
	fn Listener
}

// slot is the backing field of one property.
//
// order serializes assign-then-notify so listeners see writes in the order
// they were stored. Listeners must not synchronously Set the property they
// are being notified about.
type slot struct {
	order sync.Mutex
	mu    sync.RWMutex
	value ir.Value
}

func (s *slot) assign(v ir.Value, notify func()) {
	s.order.Lock()
	defer s.order.Unlock()
	s.set(v)
	notify()
}

func (s *slot) get() ir.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *slot) set(v ir.Value) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
}

// Object is one node's instance of a logical object.
//
// Its correlation id is computed once at attach time and never changes.
// The registry snapshot is shared and read-only.
type Object struct {
	node       *Node
	reg        *registry.Snapshot
	instanceID string
	id         string
	slots      map[string]*slot
	guards     map[string]*Guard
	closed     atomic.Bool

	subMu  sync.RWMutex
	nextID int
	subs   []subscriber
}

func newObject(n *Node, reg *registry.Snapshot, instanceID, id string) *Object {
	o := &Object{
		node:       n,
		reg:        reg,
		instanceID: instanceID,
		id:         id,
		slots:      make(map[string]*slot),
		guards:     make(map[string]*Guard),
	}
	for _, spec := range reg.Members() {
		m, _ := reg.Lookup(spec.Name)
		switch spec.Category {
		case ir.CategoryProperty:
			o.slots[spec.Name] = &slot{value: m.Initial}
		case ir.CategorySequence:
			o.guards[spec.Name] = NewGuard()
		}
	}
	return o
}

// ID returns the correlation identity.
func (o *Object) ID() string { return o.id }

// InstanceID returns the instance id the identity was derived from.
func (o *Object) InstanceID() string { return o.instanceID }

// Type returns the declared type name.
func (o *Object) Type() string { return o.reg.Type() }

// Registry returns the object's registration table.
func (o *Object) Registry() *registry.Snapshot { return o.reg }

// Node returns the node the object is attached to.
func (o *Object) Node() *Node { return o.node }

// Subscribe registers fn for change notifications and returns a function
// that unregisters it. Listeners run synchronously in registration order
// on the goroutine that applied the change.
func (o *Object) Subscribe(fn Listener) (unsubscribe func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()

	id := o.nextID
	o.nextID++
	o.subs = append(o.subs, subscriber{id: id, fn: fn})

	return func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *Object) notify(c Change) {
	o.subMu.RLock()
	subs := make([]subscriber, len(o.subs))
	copy(subs, o.subs)
	o.subMu.RUnlock()

	for _, s := range subs {
		s.fn(c)
	}
}

// Get returns a property's current value. Reads are always local.
func (o *Object) Get(member string) (ir.Value, error) {
	s, ok := o.slots[member]
	if !ok {
		return nil, newError(ErrCodeUnknownMember, o.id, member, "no property named %q on %s", member, o.Type())
	}
	return s.get(), nil
}

// Close detaches the object from its node. Inbound envelopes for its
// correlation id are dropped afterwards. Close is idempotent.
func (o *Object) Close() {
	if o.closed.Swap(true) {
		return
	}
	o.node.detach(o)
}

func (o *Object) closedError(member string) error {
	return newError(ErrCodeClosed, o.id, member, "object is closed")
}

// checkArgs verifies argument values against the declared parameters.
func (o *Object) checkArgs(spec ir.MemberSpec, args []ir.Value) error {
	if len(args) != len(spec.Params) {
		return newError(ErrCodeShapeMismatch, o.id, spec.Name,
			"expected %d argument(s), got %d", len(spec.Params), len(args))
	}
	for i, p := range spec.Params {
		if !p.Accepts(args[i]) {
			return newError(ErrCodeShapeMismatch, o.id, spec.Name,
				"argument %d does not conform to %s", i, p)
		}
	}
	return nil
}

// checkEnvelope verifies an inbound envelope's declared shapes against the
// local descriptor.
func (o *Object) checkEnvelope(spec ir.MemberSpec, env ir.Envelope) error {
	if !ir.ShapesMatch(env.Params, spec.Params) || env.Shape != spec.Result {
		return newError(ErrCodeShapeMismatch, o.id, spec.Name,
			"peer declares %s -> %s, local declares %s -> %s",
			shapeList(env.Params), env.Shape, shapeList(spec.Params), spec.Result)
	}
	return nil
}

// lookupInbound resolves the member named by an inbound envelope and
// checks that it belongs to one of the wanted categories.
func (o *Object) lookupInbound(env ir.Envelope, wanted ...ir.Category) (registry.Member, error) {
	m, ok := o.reg.Lookup(env.Member)
	if !ok {
		return registry.Member{}, newError(ErrCodeUnknownMember, o.id, env.Member,
			"peer relayed a member %s does not declare", o.Type())
	}
	for _, c := range wanted {
		if m.Spec.Category == c {
			return m, nil
		}
	}
	return registry.Member{}, newError(ErrCodeShapeMismatch, o.id, env.Member,
		"peer sent %s envelope for a %s member", env.Kind, m.Spec.Category)
}

// mayReceive applies the receive half of the resolver with this node's
// roles. Envelopes the local direction refuses are ignored, not errors.
func (o *Object) mayReceive(spec ir.MemberSpec, env ir.Envelope) bool {
	if ir.MayReceive(spec.Direction, o.node.roles) {
		return true
	}
	o.node.logger.Debug("ignoring envelope: direction does not permit receive",
		"envelope", env.ID,
		"member", env.Member,
		"direction", spec.Direction,
		"roles", o.node.roles,
	)
	o.node.observe(OutcomeIgnored, env, "direction "+spec.Direction.String())
	return false
}

func shapeList(shapes []ir.Shape) string {
	out := "("
	for i, s := range shapes {
		if i > 0 {
			out += ", "
		}
		out += s.String()
	}
	return out + ")"
}
