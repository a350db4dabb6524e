package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/config"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/store"
	"github.com/roach88/mirror/internal/testutil"
)

func TestServe_HostStopsOnCancel(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	cfg, err := config.Parse([]byte(`
node: living-room
mode: Host
listen: 127.0.0.1:0
metrics: 127.0.0.1:0
journal: ` + journal + `
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, serve(ctx, cfg, testutil.DiscardLogger()))

	// The demo catalog is announced once on start.
	st, err := store.Open(journal)
	require.NoError(t, err)
	defer st.Close()
	entries, err := st.ReadEvents(context.Background(), store.Filter{Node: "living-room", Outcome: "sent"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "QueueChanged", entries[0].Member)
	assert.Equal(t, int64(1), entries[0].Seq)
}

func TestServe_ResumesClockFromJournal(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	cfg, err := config.Parse([]byte(`
node: living-room
mode: Host
listen: 127.0.0.1:0
journal: ` + journal + `
`))
	require.NoError(t, err)

	for range 2 {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		require.NoError(t, serve(ctx, cfg, testutil.DiscardLogger()))
		cancel()
	}

	st, err := store.Open(journal)
	require.NoError(t, err)
	defer st.Close()
	seq, err := st.MaxSeq(context.Background(), "living-room")
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestServe_ClientJoinsHub(t *testing.T) {
	host, url := startHost(t)
	cfg, err := config.Parse([]byte("mode: Client\ndial: " + url + "\n"))
	require.NoError(t, err)
	assert.Equal(t, ir.ModeClient, cfg.Mode)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, serve(ctx, cfg, testutil.DiscardLogger()))

	// A client never queues the catalog.
	assert.Empty(t, host.Queue())
}

func TestServe_UnreachableHub(t *testing.T) {
	cfg, err := config.Parse([]byte("mode: Client\ndial: ws://127.0.0.1:1/relay\n"))
	require.NoError(t, err)

	err = serve(context.Background(), cfg, testutil.DiscardLogger())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServeCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: Observer\nlisten: :0\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewServeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeConfig)
}
