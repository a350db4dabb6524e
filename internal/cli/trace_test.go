package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/store"
)

// seedJournal writes a small journal: host sends Volume, the client
// applies it and a second client ignores a HostToClient write it sent.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	env := func(id, member, sender string, seq int64) ir.Envelope {
		return ir.Envelope{
			ID:          id,
			Version:     ir.ProtocolVersion,
			Kind:        ir.EnvelopeProperty,
			Correlation: "corr-1",
			Member:      member,
			Sender:      sender,
			SenderRoles: ir.ModeHost.Roles(),
			Seq:         seq,
			Shape:       ir.Sync(ir.ShapeScalar),
			Payload:     []json.RawMessage{json.RawMessage(`40`)},
		}
	}
	events := []engine.RelayEvent{
		{Node: "host", Outcome: engine.OutcomeSent, Envelope: env("e1", "Volume", "host", 1)},
		{Node: "speaker", Outcome: engine.OutcomeApplied, Envelope: env("e1", "Volume", "host", 1)},
		{Node: "speaker", Outcome: engine.OutcomeIgnored, Envelope: env("e2", "State", "remote", 4),
			Reason: "direction HostToClient does not permit receiving"},
	}
	ctx := context.Background()
	for _, ev := range events {
		require.NoError(t, st.WriteEvent(ctx, ev))
	}
	return path
}

func TestTraceCommand_Text(t *testing.T) {
	db := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "corr-1.Volume seq=1 from=host")
	assert.Contains(t, out, "(direction HostToClient does not permit receiving)")
	assert.Contains(t, out, "applied=1 ignored=1 sent=1")
}

func TestTraceCommand_FilterJSON(t *testing.T) {
	db := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db, "--node", "speaker", "--member", "Volume"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TraceOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Entries, 1)
	assert.Equal(t, "applied", resp.Data.Entries[0].Outcome)
	assert.Equal(t, map[string]int{"applied": 1, "ignored": 1}, resp.Data.Counts)
}

func TestTraceCommand_Limit(t *testing.T) {
	db := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", db, "--limit", "2"})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Data TraceOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Len(t, resp.Data.Entries, 2)
}

func TestTraceCommand_MissingJournal(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "absent.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "journal not found")
}

func TestTraceCommand_RequiresDB(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}
