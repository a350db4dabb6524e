package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scenarioDir = filepath.Join("..", "harness", "testdata", "scenarios")
	goldenDir   = filepath.Join("..", "harness", "testdata", "golden")
)

func TestScenarioCommand_Directory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioDir})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "✓ client_to_host_property")
	assert.Contains(t, out, "✓ outbound_notifier")
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
}

func TestScenarioCommand_GoldenJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewScenarioCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioDir, "--golden", goldenDir})
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string          `json:"status"`
		Data   ScenarioSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 4, resp.Data.Total)
	assert.Equal(t, 4, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
	}
}

func TestScenarioCommand_Filter(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioDir, "--filter", "client_*"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
}

func TestScenarioCommand_UpdateThenCompare(t *testing.T) {
	golden := t.TempDir()
	file := filepath.Join(scenarioDir, "bidirectional_actor.yaml")

	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{file, "--golden", golden, "--update"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(golden, "bidirectional_actor.golden"))
	require.NoError(t, err)

	cmd = NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{file, "--golden", golden})
	require.NoError(t, cmd.Execute())
}

func TestScenarioCommand_MissingGolden(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(scenarioDir, "outbound_notifier.yaml"), "--golden", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "golden file missing")
}

func TestScenarioCommand_Failure(t *testing.T) {
	dir := t.TempDir()
	wrong := `name: wrong_expectation
member: property
direction: HostToClient
sender: Host
value: 3
listeners:
  - name: client
    mode: Client
    relayed: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(wrong), 0644))

	buf := &bytes.Buffer{}
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ wrong_expectation")
	assert.Contains(t, buf.String(), "relayed=true, expected false")
}

func TestScenarioCommand_BadPath(t *testing.T) {
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioCommand_UpdateRequiresGolden(t *testing.T) {
	cmd := NewScenarioCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{scenarioDir, "--update"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--update requires --golden")
}
