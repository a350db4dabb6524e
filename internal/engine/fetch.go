package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/mirror/internal/codec"
	"github.com/roach88/mirror/internal/ir"
)

// pendingFetch collects the response to one outstanding fetch.
// Fields other than done are written only by the Run goroutine until done
// is closed, and read by the requester only after.
type pendingFetch struct {
	correlation string
	member      string
	result      ir.Shape
	responder   string
	items       []ir.Value
	err         error
	done        chan struct{}
}

// Fetch runs a sequence member on a capable peer and returns its items.
//
// Concurrent fetches of the same member on the same object are serialized
// by the member's guard, FIFO, so their batches never interleave. The
// guard is released on every exit path, including ctx cancellation.
// Fetch waits until the first responding peer finishes; callers bound the
// wait with ctx. This node's roles must permit sending the member.
func (o *Object) Fetch(ctx context.Context, member string, args ...ir.Value) ([]ir.Value, error) {
	if o.closed.Load() {
		return nil, o.closedError(member)
	}

	m, ok := o.reg.Lookup(member)
	if !ok {
		return nil, newError(ErrCodeUnknownMember, o.id, member, "no sequence named %q on %s", member, o.Type())
	}
	switch m.Spec.Category {
	case ir.CategorySequence:
	case ir.CategoryUnsupported:
		return nil, NewUnsupportedError(o.id, member)
	default:
		return nil, newError(ErrCodeUnknownMember, o.id, member, "%q is not a sequence", member)
	}
	if err := o.checkArgs(m.Spec, args); err != nil {
		return nil, err
	}
	if !ir.MaySend(m.Spec.Direction, o.node.roles) {
		return nil, newError(ErrCodeNotPermitted, o.id, member,
			"direction %s does not permit roles %s to fetch", m.Spec.Direction, o.node.roles)
	}

	payload, err := codec.EncodeAll(o.node.codec, m.Spec.Params, args)
	if err != nil {
		return nil, newError(ErrCodeShapeMismatch, o.id, member, "encode arguments: %v", err)
	}

	guard := o.guards[member]
	if err := guard.Acquire(ctx); err != nil {
		return nil, err
	}
	defer guard.Release()

	n := o.node
	token := n.tokens.Generate()
	p := &pendingFetch{
		correlation: o.id,
		member:      member,
		result:      m.Spec.Result,
		done:        make(chan struct{}),
	}
	n.mu.Lock()
	n.pending[token] = p
	n.mu.Unlock()
	defer n.finishFetch(token)

	env := n.newEnvelope(ir.EnvelopeFetch, o.id, member)
	env.Token = token
	env.Params = m.Spec.Params
	env.Shape = m.Spec.Result
	env.Payload = payload
	if err := n.send(ctx, env); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", member, err)
	}

	select {
	case <-p.done:
		return p.items, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// finishFetch unregisters a pending fetch. Responses arriving afterwards
// are dropped.
func (n *Node) finishFetch(token string) {
	n.mu.Lock()
	delete(n.pending, token)
	n.mu.Unlock()
}

// serveFetch answers an inbound fetch by running the sequence provider on
// its own goroutine and streaming the items back in batches.
// CRITICAL: called only from the Run goroutine.
func (o *Object) serveFetch(ctx context.Context, env ir.Envelope) error {
	m, err := o.lookupInbound(env, ir.CategorySequence)
	if err != nil {
		return o.node.reject(env, err)
	}
	if err := o.checkEnvelope(m.Spec, env); err != nil {
		return o.node.reject(env, err)
	}
	if !o.mayReceive(m.Spec, env) {
		return nil
	}
	args, err := codec.DecodeAll(o.node.codec, env.Params, env.Payload)
	if err != nil {
		return o.node.reject(env, newError(ErrCodeShapeMismatch, o.id, env.Member, "decode arguments: %v", err))
	}

	o.node.observe(OutcomeApplied, env, "")
	go func() {
		items, err := m.Provide(ctx, args)
		if err == nil {
			err = o.streamItems(ctx, env, m.Spec.Result, items)
		}

		end := o.node.newEnvelope(ir.EnvelopeEnd, o.id, env.Member)
		end.Token = env.Token
		end.Shape = m.Spec.Result
		if err != nil {
			end.Error = err.Error()
			o.node.logger.Warn("sequence provider failed",
				"correlation", o.id,
				"member", env.Member,
				"token", env.Token,
				"error", err,
			)
		}
		_ = o.node.send(ctx, end)
	}()
	return nil
}

func (o *Object) streamItems(ctx context.Context, req ir.Envelope, result ir.Shape, items []ir.Value) error {
	size := o.node.batchSize
	for start := 0; start < len(items); start += size {
		stop := min(start+size, len(items))

		payload := make([]json.RawMessage, 0, stop-start)
		for _, item := range items[start:stop] {
			raw, err := o.node.codec.Encode(result, item)
			if err != nil {
				return fmt.Errorf("encode item: %w", err)
			}
			payload = append(payload, raw)
		}

		batch := o.node.newEnvelope(ir.EnvelopeBatch, o.id, req.Member)
		batch.Token = req.Token
		batch.Shape = result
		batch.Payload = payload
		if err := o.node.send(ctx, batch); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}
	return nil
}

// applyResponse routes a batch or end envelope to its pending fetch.
// Only the first peer to respond is accepted.
// CRITICAL: called only from the Run goroutine.
func (n *Node) applyResponse(env ir.Envelope) error {
	n.mu.RLock()
	p, ok := n.pending[env.Token]
	n.mu.RUnlock()
	if !ok || p.correlation != env.Correlation || p.member != env.Member {
		n.logger.Debug("dropping response: no pending fetch",
			"envelope", env.ID,
			"token", env.Token,
			"sender", env.Sender,
		)
		n.observe(OutcomeDropped, env, "no pending fetch")
		return nil
	}

	if p.responder == "" {
		p.responder = env.Sender
	}
	if env.Sender != p.responder {
		n.observe(OutcomeDropped, env, "another peer already responded")
		return nil
	}

	if env.Shape != p.result {
		err := newError(ErrCodeShapeMismatch, p.correlation, p.member,
			"peer streams %s, local declares %s", env.Shape, p.result)
		n.completeFetch(env.Token, p, err)
		return n.reject(env, err)
	}

	switch env.Kind {
	case ir.EnvelopeBatch:
		for _, raw := range env.Payload {
			v, err := n.codec.Decode(p.result, raw)
			if err != nil {
				err = newError(ErrCodeShapeMismatch, p.correlation, p.member, "decode item: %v", err)
				n.completeFetch(env.Token, p, err)
				return n.reject(env, err)
			}
			p.items = append(p.items, v)
		}
	case ir.EnvelopeEnd:
		var err error
		if env.Error != "" {
			err = newError(ErrCodeRemote, p.correlation, p.member, "%s", env.Error)
		}
		n.completeFetch(env.Token, p, err)
	}

	n.observe(OutcomeApplied, env, "")
	return nil
}

func (n *Node) completeFetch(token string, p *pendingFetch, err error) {
	n.finishFetch(token)
	if err != nil {
		p.items = nil
	}
	p.err = err
	close(p.done)
}
