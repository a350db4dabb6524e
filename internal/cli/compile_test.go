package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/player"
)

func playerSchema(t *testing.T) string {
	t.Helper()
	return string(player.SchemaSource())
}

func TestCompileToStdout(t *testing.T) {
	dir := writeSchema(t, "mixer.cue", mixerSchema)

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	want := `[{"members":[` +
		`{"category":"property","direction":"Bidirectional","kind":"property","name":"Level","params":[],"result":"scalar"},` +
		`{"category":"actor","direction":"ClientToHost","kind":"method","name":"Mute","params":["scalar"],"result":"scalar"}` +
		`],"type":"Mixer"}]`
	assert.Equal(t, want, strings.TrimSpace(buf.String()))
}

func TestCompileToFile(t *testing.T) {
	dir := writeSchema(t, "player.cue", "package schemas\n\n"+playerSchema(t))
	out := filepath.Join(t.TempDir(), "descriptors.json")

	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "-o", out})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var objects []struct {
		Type    string `json:"type"`
		Members []struct {
			Name   string `json:"name"`
			Result string `json:"result"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal(data, &objects))
	require.Len(t, objects, 1)
	assert.Equal(t, player.TypeName, objects[0].Type)
	require.Len(t, objects[0].Members, 7)
	assert.Equal(t, player.MemberVolume, objects[0].Members[0].Name)
	assert.Equal(t, "deferred value-record Track", objects[0].Members[3].Result)
}

func TestCompileMissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/schemas"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
