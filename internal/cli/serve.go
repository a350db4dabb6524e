package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/mirror/internal/config"
	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/metrics"
	"github.com/roach88/mirror/internal/player"
	"github.com/roach88/mirror/internal/store"
	"github.com/roach88/mirror/internal/transport"
)

// Error codes for node commands.
const (
	ErrCodeConfig  = "E008" // Configuration file invalid
	ErrCodeDial    = "E020" // Hub unreachable
	ErrCodeRemote  = "E021" // Member operation failed
	ErrCodeJournal = "E030" // Journal unreadable
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Config string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a player node",
		Long: `Run one node of a player group until interrupted.

A node either listens (the hub of a WebSocket star) or dials a hub. The
player object is mirrored under the configured instance id, so every
node of a group must agree on instance and context. Host nodes start
with the demo catalog queued.

Exit codes:
  0 - Stopped by signal
  1 - Node failed while running
  2 - Invalid configuration or unreachable hub

Examples:
  mirror serve --config host.yaml
  mirror serve --config speaker.yaml -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			cfg, err := config.Load(opts.Config)
			if err != nil {
				_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
				return WrapExitError(ExitCommandError, "load config", err)
			}
			logger, err := newNodeLogger(cmd.ErrOrStderr(), cfg, opts.RootOptions)
			if err != nil {
				return WrapExitError(ExitCommandError, "configure logging", err)
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "node configuration file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// newNodeLogger writes structured logs to w at the configured level.
// Verbose output forces debug; JSON output selects the JSON handler.
func newNodeLogger(w io.Writer, cfg *config.Config, opts *RootOptions) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
}

// serve runs one configured node until ctx is cancelled. Cancellation is
// a clean stop and returns nil.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lib := player.NewLibrary(player.DemoTracks()...)
	c, err := player.NewCodec(lib)
	if err != nil {
		return WrapExitError(ExitCommandError, "build codec", err)
	}
	opts := append(cfg.NodeOptions(), engine.WithLogger(logger), engine.WithCodec(c))

	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "open journal", err)
		}
		defer st.Close()
		opts = append(opts, engine.WithObserver(store.NewJournal(st, logger)))

		// A named node continues its logical clock across restarts.
		if cfg.Node != "" {
			seq, err := st.MaxSeq(ctx, cfg.Node)
			if err != nil {
				return WrapExitError(ExitCommandError, "read journal clock", err)
			}
			if seq > 0 {
				logger.Info("resuming clock from journal", "seq", seq)
				opts = append(opts, engine.WithClock(engine.NewClockAt(seq)))
			}
		}
	}

	var promHandler http.Handler
	if cfg.Metrics != "" {
		reg := metrics.NewRegistry()
		relay, err := metrics.NewRelay(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "register metrics", err)
		}
		opts = append(opts, engine.WithObserver(relay))
		promHandler = metrics.Handler(reg, logger)
	}

	var (
		link   transport.Transport
		server *transport.WebSocketServer
		client *transport.WebSocketClient
	)
	if cfg.Listen != "" {
		server = transport.NewWebSocketServer(logger)
		link = server
	} else {
		client, err = transport.DialWebSocket(ctx, cfg.Dial, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "join group", err)
		}
		defer client.Close()
		link = client
	}

	node, err := engine.NewNode(cfg.Mode, link, opts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "create node", err)
	}
	defer node.Close()

	session := player.NewSession(lib)
	obj, err := session.Mirror(node, cfg.Instance)
	if err != nil {
		return WrapExitError(ExitCommandError, "attach player", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if server != nil {
		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.Listen, cfg.Path, nil)
		})
	}
	if client != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case <-client.Done():
				if err := client.Err(); err != nil {
					return fmt.Errorf("connection to %s lost: %w", cfg.Dial, err)
				}
				return fmt.Errorf("hub %s closed the connection", cfg.Dial)
			}
		})
	}
	if promHandler != nil {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics, promHandler, logger)
		})
	}
	g.Go(func() error {
		if err := node.Run(gctx); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	if cfg.Mode.Roles().Has(ir.RoleHost) {
		if err := session.Enqueue(gctx, lib.Tracks()...); err != nil {
			logger.Warn("queue demo catalog", "error", err)
		}
	}
	logger.Info("player ready",
		"instance", cfg.Instance,
		"correlation", obj.ID(),
		"mode", cfg.Mode,
	)

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "node stopped", err)
	}
	return nil
}

// serveMetrics serves the Prometheus endpoint on addr until ctx is
// cancelled.
func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
