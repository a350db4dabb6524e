package engine

import (
	"context"
	"encoding/json"

	"github.com/roach88/mirror/internal/ir"
)

// Set writes a property.
//
// The backing value is assigned and local listeners are notified
// unconditionally. The write is then relayed if this node's roles may
// send the property's direction. Relay failures do not fail Set.
func (o *Object) Set(ctx context.Context, member string, v ir.Value) error {
	if o.closed.Load() {
		return o.closedError(member)
	}

	m, ok := o.reg.Lookup(member)
	if !ok || m.Spec.Kind != ir.KindProperty {
		return newError(ErrCodeUnknownMember, o.id, member, "no property named %q on %s", member, o.Type())
	}
	if !m.Spec.Result.Accepts(v) {
		return newError(ErrCodeShapeMismatch, o.id, member,
			"value %s does not conform to %s", describe(v), m.Spec.Result)
	}

	o.slots[member].assign(v, func() {
		o.notify(Change{Member: member, Value: v, Sender: o.node.id})
	})

	if !ir.MaySend(m.Spec.Direction, o.node.roles) {
		return nil
	}
	raw, err := o.node.codec.Encode(m.Spec.Result, v)
	if err != nil {
		o.node.logger.Error("encode property value", "correlation", o.id, "member", member, "error", err)
		return nil
	}

	env := o.node.newEnvelope(ir.EnvelopeProperty, o.id, member)
	env.Shape = m.Spec.Result
	env.Payload = []json.RawMessage{raw}
	_ = o.node.send(ctx, env)
	return nil
}

// applyProperty applies an inbound property write. The write is assigned
// and notified locally but never re-forwarded.
// CRITICAL: called only from the Run goroutine.
func (o *Object) applyProperty(env ir.Envelope) error {
	m, err := o.lookupInbound(env, ir.CategoryProperty)
	if err != nil {
		return o.node.reject(env, err)
	}
	if err := o.checkEnvelope(m.Spec, env); err != nil {
		return o.node.reject(env, err)
	}
	if !o.mayReceive(m.Spec, env) {
		return nil
	}
	if len(env.Payload) != 1 {
		return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member,
			"property envelope carries %d payloads", len(env.Payload)))
	}

	v, err := o.node.codec.Decode(m.Spec.Result, env.Payload[0])
	if err != nil {
		return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member, "decode value: %v", err))
	}

	o.slots[env.Member].assign(v, func() {
		o.notify(Change{Member: env.Member, Value: v, Remote: true, Sender: env.Sender})
	})
	o.node.observe(OutcomeApplied, env, "")
	return nil
}
