package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionTable(t *testing.T) {
	rows := DirectionTable()
	require.Len(t, rows, 10)

	byName := make(map[string]DirectionRow, len(rows))
	for _, r := range rows {
		byName[r.Direction] = r
	}

	assert.Equal(t, DirectionRow{Direction: "None", Send: "never", Receive: "never", Relays: []string{}}, byName["None"])
	assert.Equal(t, "Client", byName["ClientToHost"].Send)
	assert.Equal(t, "Host", byName["ClientToHost"].Receive)
	assert.Equal(t, []string{"Full>Full", "Full>Host", "Client>Full", "Client>Host"}, byName["ClientToHost"].Relays)
	assert.Len(t, byName["Bidirectional"].Relays, 9)
	assert.Empty(t, byName["Outbound"].Relays)
	assert.Empty(t, byName["Inbound"].Relays)
}

func TestTableCommand_Golden(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTableCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "table", buf.Bytes())
}

func TestTableCommand_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTableCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string         `json:"status"`
		Data   []DirectionRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, DirectionTable(), resp.Data)
}
