package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/mirror/internal/codec"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/registry"
)

// Invoke calls a method on this object.
//
// Purely local methods run directly. For relayed members the call is
// broadcast when this node's roles may send the member's direction, and
// the body always executes locally: the calling node is authoritative for
// its own call. Errors from the body are returned unchanged.
//
// Synchronous members return an already resolved future; deferred members
// resolve when the body finishes.
func (o *Object) Invoke(ctx context.Context, member string, args ...ir.Value) *Future {
	if o.closed.Load() {
		return resolvedFuture(nil, o.closedError(member))
	}

	if fn, ok := o.reg.Local(member); ok {
		return resolvedFuture(fn(ctx, args))
	}

	m, ok := o.reg.Lookup(member)
	if !ok {
		return resolvedFuture(nil, newError(ErrCodeUnknownMember, o.id, member,
			"no method named %q on %s", member, o.Type()))
	}

	switch m.Spec.Category {
	case ir.CategoryUnsupported:
		return resolvedFuture(nil, NewUnsupportedError(o.id, member))
	case ir.CategoryProperty:
		return resolvedFuture(nil, newError(ErrCodeUnknownMember, o.id, member,
			"%q is a property; use Set or Get", member))
	case ir.CategorySequence:
		return resolvedFuture(nil, newError(ErrCodeUnknownMember, o.id, member,
			"%q is a sequence; use Fetch", member))
	}

	if err := o.checkArgs(m.Spec, args); err != nil {
		return resolvedFuture(nil, err)
	}

	if m.Spec.Category == ir.CategoryNotifier {
		return resolvedFuture(o.announce(ctx, m, args))
	}
	return o.act(ctx, m, args)
}

// Call invokes a method and waits for its result.
func (o *Object) Call(ctx context.Context, member string, args ...ir.Value) (ir.Value, error) {
	return o.Invoke(ctx, member, args...).Await(ctx)
}

// act relays an actor call, then runs its body locally.
func (o *Object) act(ctx context.Context, m registry.Member, args []ir.Value) *Future {
	o.relayCall(ctx, m.Spec, args)

	if !m.Spec.Result.Deferred {
		return resolvedFuture(o.runActor(ctx, m, args, o.node.id, false))
	}

	f := newFuture()
	go func() {
		f.resolve(o.runActor(ctx, m, args, o.node.id, false))
	}()
	return f
}

// runActor executes an actor body and notifies listeners with its result.
func (o *Object) runActor(ctx context.Context, m registry.Member, args []ir.Value, sender string, remote bool) (ir.Value, error) {
	result, err := m.Invoke(ctx, args)
	if err != nil {
		return nil, err
	}
	result, err = o.conformResult(m.Spec, result)
	if err != nil {
		return nil, err
	}
	o.notify(Change{Member: m.Spec.Name, Value: result, Remote: remote, Sender: sender})
	return result, nil
}

// announce computes a notifier's value, notifies local listeners and
// relays the announced value.
func (o *Object) announce(ctx context.Context, m registry.Member, args []ir.Value) (ir.Value, error) {
	var value ir.Value = ir.Void{}
	if len(args) == 1 {
		value = args[0]
	}
	if m.Invoke != nil {
		v, err := m.Invoke(ctx, args)
		if err != nil {
			return nil, err
		}
		value = v
	}
	value, err := o.conformResult(m.Spec, value)
	if err != nil {
		return nil, err
	}

	o.notify(Change{Member: m.Spec.Name, Value: value, Sender: o.node.id})
	o.relayAnnouncement(ctx, m.Spec, value)
	return value, nil
}

// relayAnnouncement broadcasts the value a notifier announced, encoded
// with the result shape, whether it was passed in or computed by the body.
func (o *Object) relayAnnouncement(ctx context.Context, spec ir.MemberSpec, value ir.Value) {
	if !ir.MaySend(spec.Direction, o.node.roles) {
		return
	}
	env := o.node.newEnvelope(ir.EnvelopeCall, o.id, spec.Name)
	env.Params = spec.Params
	env.Shape = spec.Result
	if spec.Result.Kind != ir.ShapeNone {
		raw, err := o.node.codec.Encode(spec.Result.Now(), value)
		if err != nil {
			o.node.logger.Error("encode announced value", "correlation", o.id, "member", spec.Name, "error", err)
			return
		}
		env.Payload = []json.RawMessage{raw}
	}
	_ = o.node.send(ctx, env)
}

// applyAnnouncement notifies listeners with a relayed notifier value.
// Notifiers never run business logic on receivers.
func (o *Object) applyAnnouncement(spec ir.MemberSpec, env ir.Envelope) error {
	var value ir.Value = ir.Void{}
	if spec.Result.Kind != ir.ShapeNone {
		if len(env.Payload) != 1 {
			return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member,
				"announcement carries %d value(s), want 1", len(env.Payload)))
		}
		v, err := o.node.codec.Decode(spec.Result.Now(), env.Payload[0])
		if err != nil {
			return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member, "decode announced value: %v", err))
		}
		value = v
	}
	o.notify(Change{Member: env.Member, Value: value, Remote: true, Sender: env.Sender})
	o.node.observe(OutcomeApplied, env, "")
	return nil
}

// conformResult normalizes a body's result and checks it against the
// declared result shape.
func (o *Object) conformResult(spec ir.MemberSpec, v ir.Value) (ir.Value, error) {
	if v == nil && spec.Result.Kind == ir.ShapeNone {
		return ir.Void{}, nil
	}
	if !spec.Result.Accepts(v) {
		return nil, newError(ErrCodeShapeMismatch, o.id, spec.Name,
			"body returned %s, declared %s", describe(v), spec.Result.Now())
	}
	return v, nil
}

// relayCall broadcasts a call envelope if this node may send the member.
func (o *Object) relayCall(ctx context.Context, spec ir.MemberSpec, args []ir.Value) {
	if !ir.MaySend(spec.Direction, o.node.roles) {
		return
	}
	payload, err := codec.EncodeAll(o.node.codec, spec.Params, args)
	if err != nil {
		o.node.logger.Error("encode call arguments", "correlation", o.id, "member", spec.Name, "error", err)
		return
	}

	env := o.node.newEnvelope(ir.EnvelopeCall, o.id, spec.Name)
	env.Params = spec.Params
	env.Shape = spec.Result
	env.Payload = payload
	_ = o.node.send(ctx, env)
}

// applyCall applies an inbound call envelope.
// CRITICAL: called only from the Run goroutine.
func (o *Object) applyCall(ctx context.Context, env ir.Envelope) error {
	m, err := o.lookupInbound(env, ir.CategoryActor, ir.CategoryNotifier)
	if err != nil {
		return o.node.reject(env, err)
	}
	if err := o.checkEnvelope(m.Spec, env); err != nil {
		return o.node.reject(env, err)
	}
	if !o.mayReceive(m.Spec, env) {
		return nil
	}

	if m.Spec.Category == ir.CategoryNotifier {
		return o.applyAnnouncement(m.Spec, env)
	}

	args, err := codec.DecodeAll(o.node.codec, env.Params, env.Payload)
	if err != nil {
		return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member, "decode arguments: %v", err))
	}

	if !m.Spec.Result.Deferred {
		if _, err := o.runActor(ctx, m, args, env.Sender, true); err != nil {
			o.node.observe(OutcomeFailed, env, err.Error())
			return fmt.Errorf("apply %s: %w", env.Member, err)
		}
		o.node.observe(OutcomeApplied, env, "")
		return nil
	}

	go func() {
		if _, err := o.runActor(ctx, m, args, env.Sender, true); err != nil {
			o.node.logEnvelopeError(env, fmt.Errorf("apply %s: %w", env.Member, err))
			o.node.observe(OutcomeFailed, env, err.Error())
			return
		}
		o.node.observe(OutcomeApplied, env, "")
	}()
	return nil
}

func describe(v ir.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
