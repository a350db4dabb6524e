package store

import (
	"context"
	"fmt"

	"github.com/roach88/mirror/internal/engine"
)

// WriteEvent appends one relay event to the journal.
// Uses ON CONFLICT DO NOTHING for idempotency - recording the same
// (node, envelope, outcome) twice is silently ignored.
func (s *Store) WriteEvent(ctx context.Context, ev engine.RelayEvent) error {
	env := ev.Envelope
	payload, err := marshalPayload(env.Payload)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relay_events
		(node_id, envelope_id, outcome, kind, correlation, member, sender, sender_roles,
		 seq, token, params, shape, payload, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.Node,
		env.ID,
		string(ev.Outcome),
		string(env.Kind),
		env.Correlation,
		env.Member,
		env.Sender,
		env.SenderRoles.String(),
		env.Seq,
		env.Token,
		formatParams(env.Params),
		env.Shape.String(),
		payload,
		ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
