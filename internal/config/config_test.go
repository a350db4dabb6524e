package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("mode: Host\nlisten: 127.0.0.1:7700\n"))
	require.NoError(t, err)

	assert.Equal(t, ir.ModeHost, cfg.Mode)
	assert.Equal(t, engine.DefaultContextID, cfg.Context)
	assert.Equal(t, DefaultPath, cfg.Path)
	assert.Equal(t, DefaultInstance, cfg.Instance)
	assert.Equal(t, engine.DefaultBatchSize, cfg.BatchSize)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParse_Full(t *testing.T) {
	cfg, err := Parse([]byte(`
node: living-room
context: house
mode: Client
dial: ws://127.0.0.1:7700/relay
instance: speaker-3
journal: /tmp/journal.db
metrics: 127.0.0.1:9100
log_level: debug
batch_size: 4
`))
	require.NoError(t, err)

	assert.Equal(t, "living-room", cfg.Node)
	assert.Equal(t, "house", cfg.Context)
	assert.Equal(t, ir.ModeClient, cfg.Mode)
	assert.Equal(t, "speaker-3", cfg.Instance)
	assert.Equal(t, 4, cfg.BatchSize)
	assert.Len(t, cfg.NodeOptions(), 3)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown field", "mode: Host\nlisten: :1\nlisen: :2\n", "field lisen not found"},
		{"bad mode", "mode: Observer\nlisten: :1\n", `mode "Observer"`},
		{"no transport", "mode: Host\n", "one of listen or dial"},
		{"both transports", "mode: Host\nlisten: :1\ndial: ws://x\n", "mutually exclusive"},
		{"dial scheme", "mode: Client\ndial: http://x\n", "ws:// or wss://"},
		{"path", "mode: Host\nlisten: :1\npath: relay\n", "must start with /"},
		{"batch size", "mode: Host\nlisten: :1\nbatch_size: -2\n", "batch_size"},
		{"log level", "mode: Host\nlisten: :1\nlog_level: loud\n", "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_ReportsAllProblems(t *testing.T) {
	_, err := Parse([]byte("mode: Nope\nlog_level: loud\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "one of listen or dial")
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: Full\nlisten: :7700\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ir.ModeFull, cfg.Mode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
