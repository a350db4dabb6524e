package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/config"
	"github.com/roach88/mirror/internal/engine"
	"github.com/roach88/mirror/internal/ir"
	"github.com/roach88/mirror/internal/player"
	"github.com/roach88/mirror/internal/transport"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Dial     string
	Instance string
	Context  string
	Mode     string
	Timeout  time.Duration
}

// InvokeResult is the output of the invoke command.
type InvokeResult struct {
	Action string         `json:"action"`
	Volume *int64         `json:"volume,omitempty"`
	Track  *player.Track  `json:"track,omitempty"`
	Queue  []player.Track `json:"queue,omitempty"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action> [argument]",
		Short: "Operate a running player group",
		Long: `Join a player group as a short-lived node, perform one action and leave.

Actions:
  volume N        set the volume on every node
  play TRACK      ask the host to play a catalog track by id
  queue [OFFSET]  page through the host's queue
  seek            call a member no node supports

Exit codes:
  0 - Action completed
  1 - The member operation failed
  2 - Invalid arguments or unreachable hub

Examples:
  mirror invoke --dial ws://127.0.0.1:7700/relay volume 30
  mirror invoke --dial ws://127.0.0.1:7700/relay play meridian
  mirror invoke --dial ws://127.0.0.1:7700/relay queue 1 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(commandContext(cmd), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dial, "dial", "", "ws:// URL of the group's hub (required)")
	cmd.Flags().StringVar(&opts.Instance, "instance", config.DefaultInstance, "player instance id")
	cmd.Flags().StringVar(&opts.Context, "context", engine.DefaultContextID, "correlation context id")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(ir.ModeClient), "mode of the short-lived node")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "time allowed for the whole action")
	_ = cmd.MarkFlagRequired("dial")
	return cmd
}

// invokeAction performs one action against an attached session.
type invokeAction func(ctx context.Context, s *player.Session, arg string) (InvokeResult, error)

var invokeActions = map[string]invokeAction{
	"volume": invokeVolume,
	"play":   invokePlay,
	"queue":  invokeQueue,
	"seek":   invokeSeek,
}

// usageError marks an action argument the user got wrong.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func runInvoke(parent context.Context, opts *InvokeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	name := args[0]
	action, ok := invokeActions[name]
	if !ok {
		msg := fmt.Sprintf("unknown action %q: must be one of volume, play, queue, seek", name)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	var arg string
	if len(args) > 1 {
		arg = args[1]
	}
	mode, err := ir.ParseMode(opts.Mode)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}

	ctx, cancel := context.WithTimeout(parent, opts.Timeout)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(formatter.ErrWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	lib := player.NewLibrary(player.DemoTracks()...)
	c, err := player.NewCodec(lib)
	if err != nil {
		return WrapExitError(ExitCommandError, "build codec", err)
	}

	client, err := transport.DialWebSocket(ctx, opts.Dial, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeDial, err.Error(), nil)
		return WrapExitError(ExitCommandError, "join group", err)
	}
	defer client.Close()

	node, err := engine.NewNode(mode, client,
		engine.WithContextID(opts.Context),
		engine.WithLogger(logger),
		engine.WithCodec(c),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "create node", err)
	}
	defer node.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = node.Run(runCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	session := player.NewSession(lib)
	if _, err := session.Mirror(node, opts.Instance); err != nil {
		return WrapExitError(ExitCommandError, "attach player", err)
	}
	formatter.VerboseLog("joined %s as %s node %s", opts.Dial, mode, node.ID())

	result, err := action(ctx, session, arg)
	if err != nil {
		if _, ok := err.(usageError); ok {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, name, err)
		}
		_ = formatter.Error(ErrCodeRemote, err.Error(), nil)
		return WrapExitError(ExitFailure, name, err)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeInvokeText(formatter, result)
	return nil
}

func invokeVolume(ctx context.Context, s *player.Session, arg string) (InvokeResult, error) {
	if arg == "" {
		return InvokeResult{}, usageError{"volume requires a level"}
	}
	level, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return InvokeResult{}, usageError{fmt.Sprintf("volume %q is not an integer", arg)}
	}
	if err := s.SetVolume(ctx, level); err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Action: "volume", Volume: &level}, nil
}

func invokePlay(ctx context.Context, s *player.Session, arg string) (InvokeResult, error) {
	if arg == "" {
		return InvokeResult{}, usageError{"play requires a track id"}
	}
	t, ok := s.Library().Lookup(arg)
	if !ok {
		return InvokeResult{}, usageError{fmt.Sprintf("unknown track %q", arg)}
	}
	started, err := s.Play(ctx, t)
	if err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Action: "play", Track: &started}, nil
}

func invokeQueue(ctx context.Context, s *player.Session, arg string) (InvokeResult, error) {
	var offset int64
	if arg != "" {
		var err error
		if offset, err = strconv.ParseInt(arg, 10, 64); err != nil {
			return InvokeResult{}, usageError{fmt.Sprintf("offset %q is not an integer", arg)}
		}
	}
	tracks, err := s.FetchQueue(ctx, offset)
	if err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Action: "queue", Queue: tracks}, nil
}

func invokeSeek(ctx context.Context, s *player.Session, _ string) (InvokeResult, error) {
	if err := s.Seek(ctx); err != nil {
		return InvokeResult{}, err
	}
	return InvokeResult{Action: "seek"}, nil
}

func writeInvokeText(f *OutputFormatter, r InvokeResult) {
	switch r.Action {
	case "volume":
		f.Printf("volume set to %d\n", *r.Volume)
	case "play":
		f.Printf("playing %s by %s\n", r.Track.Title, r.Track.Artist)
	case "queue":
		if len(r.Queue) == 0 {
			f.Printf("queue is empty\n")
			return
		}
		for _, t := range r.Queue {
			f.Printf("%-10s %s - %s\n", t.ID, t.Artist, t.Title)
		}
	default:
		f.Printf("%s done\n", r.Action)
	}
}
