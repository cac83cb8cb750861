package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newAuditCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Show cancelled orders excluded from aggregation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				trail, err := rt.Service.AuditTrail(cmd.Context())
				if err != nil {
					return commandError("audit trail", err)
				}
				return out.Emit(trail, nil, func(w io.Writer) {
					fmt.Fprintln(w, "ORDER\tCOMBINATION\tNOTE\tAT")
					for _, e := range trail {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.OrderID, e.CombinationLabel, e.Note, e.Timestamp.Format("2006-01-02 15:04"))
					}
				})
			})
		},
	}
}

func newProgressCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Summarise order statuses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				p, err := rt.Service.Progress(cmd.Context())
				if err != nil {
					return commandError("progress", err)
				}
				return out.Emit(p, nil, func(w io.Writer) {
					fmt.Fprintf(w, "completion\t%d%%\n", p.CompletionRate)
					fmt.Fprintf(w, "completed\t%d\nin-progress\t%d\nplanned\t%d\ncancelled\t%d\n", p.Completed, p.InProgress, p.Planned, p.Cancelled)
				})
			})
		},
	}
}
