package store

import (
	"context"
	"testing"

	"github.com/roach88/mirror/internal/engine"
)

func TestWriteEvent_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("node-b", "env-1", engine.OutcomeApplied, 7)
	if err := s.WriteEvent(ctx, ev); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	entries, err := s.ReadEvents(ctx, Filter{})
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	e := entries[0]
	if e.Node != "node-b" || e.EnvelopeID != "env-1" || e.Outcome != "applied" {
		t.Errorf("identity columns = %q %q %q", e.Node, e.EnvelopeID, e.Outcome)
	}
	if e.Kind != "property" || e.Member != "Volume" || e.Correlation != "corr-1" {
		t.Errorf("envelope columns = %q %q %q", e.Kind, e.Member, e.Correlation)
	}
	if e.Seq != 7 {
		t.Errorf("Seq = %d, want 7", e.Seq)
	}
	if e.SenderRoles != "{Host}" {
		t.Errorf("SenderRoles = %q, want {Host}", e.SenderRoles)
	}
	if e.Shape != "scalar" {
		t.Errorf("Shape = %q, want scalar", e.Shape)
	}
	if len(e.Payload) != 1 || string(e.Payload[0]) != "40" {
		t.Errorf("Payload = %s, want [40]", e.Payload)
	}
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("node-b", "env-1", engine.OutcomeApplied, 1)
	for i := 0; i < 3; i++ {
		if err := s.WriteEvent(ctx, ev); err != nil {
			t.Fatalf("WriteEvent() #%d failed: %v", i, err)
		}
	}
	// Same envelope, different outcome, is a separate observation.
	if err := s.WriteEvent(ctx, createTestEvent("node-b", "env-1", engine.OutcomeRejected, 1)); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	entries, err := s.ReadEvents(ctx, Filter{})
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestWriteEvent_EmptyPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("node-a", "env-9", engine.OutcomeSent, 2)
	ev.Envelope.Payload = nil
	ev.Reason = ""
	if err := s.WriteEvent(ctx, ev); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}

	entries, err := s.ReadEvents(ctx, Filter{})
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if entries[0].Payload != nil {
		t.Errorf("Payload = %s, want nil", entries[0].Payload)
	}
}
