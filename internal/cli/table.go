package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/mirror/internal/ir"
)

// DirectionRow describes one direction of the resolver.
type DirectionRow struct {
	Direction string   `json:"direction"`
	Send      string   `json:"send"`
	Receive   string   `json:"receive"`
	Relays    []string `json:"relays"`
}

// NewTableCommand creates the table command.
func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the direction resolution table",
		Long: `Print, for each of the ten directions, which role set may send and
which may receive, followed by every sender>receiver mode pairing that
relays.

Examples:
  mirror table
  mirror table --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			rows := DirectionTable()
			if formatter.JSON() {
				return formatter.Success(rows)
			}
			return writeDirectionTable(formatter.Writer, rows)
		},
	}
	return cmd
}

// DirectionTable evaluates the resolver for every direction and mode
// pairing.
func DirectionTable() []DirectionRow {
	rows := make([]DirectionRow, 0, len(ir.Directions))
	for _, d := range ir.Directions {
		row := DirectionRow{
			Direction: d.String(),
			Send:      capability(func(r ir.RoleSet) bool { return ir.MaySend(d, r) }),
			Receive:   capability(func(r ir.RoleSet) bool { return ir.MayReceive(d, r) }),
			Relays:    []string{},
		}
		for _, sm := range ir.Modes {
			for _, lm := range ir.Modes {
				if ir.CanRelay(d, sm.Roles(), lm.Roles()) {
					row.Relays = append(row.Relays, fmt.Sprintf("%s>%s", sm, lm))
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// capability names the weakest role set satisfying pred.
func capability(pred func(ir.RoleSet) bool) string {
	switch {
	case pred(0):
		return "always"
	case pred(ir.Roles(ir.RoleHost)):
		return "Host"
	case pred(ir.Roles(ir.RoleClient)):
		return "Client"
	default:
		return "never"
	}
}

func writeDirectionTable(w io.Writer, rows []DirectionRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DIRECTION\tSEND\tRECEIVE\tRELAYS")
	for _, r := range rows {
		relays := "-"
		if len(r.Relays) > 0 {
			relays = strings.Join(r.Relays, " ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Direction, r.Send, r.Receive, relays)
	}
	return tw.Flush()
}
