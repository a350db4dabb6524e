package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a property-write event with minimal fields.
func createTestEvent(node, envelopeID string, outcome engine.Outcome, seq int64) engine.RelayEvent {
	return engine.RelayEvent{
		Node:    node,
		Outcome: outcome,
		Envelope: ir.Envelope{
			ID:          envelopeID,
			Version:     ir.ProtocolVersion,
			Kind:        ir.EnvelopeProperty,
			Correlation: "corr-1",
			Member:      "Volume",
			Sender:      "node-a",
			SenderRoles: ir.ModeHost.Roles(),
			Seq:         seq,
			Shape:       ir.Sync(ir.ShapeScalar),
			Payload:     []json.RawMessage{json.RawMessage(`40`)},
		},
	}
}
