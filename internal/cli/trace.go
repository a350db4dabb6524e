package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	DB          string
	Node        string
	Correlation string
	Member      string
	Outcome     string
	Limit       int
}

// TraceOutput is the JSON output of the trace command.
type TraceOutput struct {
	Entries []store.Entry  `json:"entries"`
	Counts  map[string]int `json:"counts"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled relay events",
		Long: `Read relay events from a node's SQLite journal.

Every envelope a journaling node sent or received is listed with what
the node did with it. Filters combine; counts per outcome follow the
listing.

Examples:
  mirror trace --db ./journal.db
  mirror trace --db ./journal.db --member Volume --outcome ignored
  mirror trace --db ./journal.db --node speaker --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "journal database path (required)")
	cmd.Flags().StringVar(&opts.Node, "node", "", "only events observed by this node")
	cmd.Flags().StringVar(&opts.Correlation, "correlation", "", "only events of this correlation id")
	cmd.Flags().StringVar(&opts.Member, "member", "", "only events of this member")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only events with this outcome")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open creates missing databases; a trace of a typo is an error.
	if _, err := os.Stat(opts.DB); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", opts.DB), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open journal", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	entries, err := st.ReadEvents(ctx, store.Filter{
		Node:        opts.Node,
		Correlation: opts.Correlation,
		Member:      opts.Member,
		Outcome:     opts.Outcome,
		Limit:       opts.Limit,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read journal", err)
	}
	counts, err := st.CountOutcomes(ctx, opts.Node)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "count outcomes", err)
	}

	if formatter.JSON() {
		return formatter.Success(TraceOutput{Entries: entries, Counts: counts})
	}

	if len(entries) == 0 {
		formatter.Printf("No events.\n")
	}
	for _, e := range entries {
		formatter.Printf("%s\n", formatEntry(e))
	}
	if len(counts) > 0 {
		outcomes := make([]string, 0, len(counts))
		for o := range counts {
			outcomes = append(outcomes, o)
		}
		slices.Sort(outcomes)
		parts := make([]string, len(outcomes))
		for i, o := range outcomes {
			parts[i] = fmt.Sprintf("%s=%d", o, counts[o])
		}
		formatter.Printf("\n%s\n", strings.Join(parts, " "))
	}
	return nil
}

// formatEntry renders one journal row on a single line.
func formatEntry(e store.Entry) string {
	line := fmt.Sprintf("%-12s %-12s %-8s %s.%s seq=%d from=%s",
		e.Node, e.Outcome, e.Kind, e.Correlation, e.Member, e.Seq, e.Sender)
	if e.Token != "" {
		line += " token=" + e.Token
	}
	if e.Reason != "" {
		line += " (" + e.Reason + ")"
	}
	return line
}
