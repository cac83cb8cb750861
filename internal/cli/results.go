package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tirecore/internal/blob"
	"tirecore/internal/core"
	"tirecore/pkg/domain"
)

func renderResults(w io.Writer, results []domain.ResultRecord) {
	fmt.Fprintln(w, "ID\tORDER\tFILE\tSTATUS\tUPLOADED\tBATCH")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.TestOrderID, r.FileName, r.Status, r.UploadedAt.Format(time.RFC3339), r.Batch)
	}
}

func newResultsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List result records, newest batch first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				results, err := rt.Service.ListResults(cmd.Context())
				if err != nil {
					return commandError("list results", err)
				}
				return out.Emit(results, nil, func(w io.Writer) { renderResults(w, results) })
			})
		},
	}

	var archive bool
	ingest := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Map result files onto active orders round-robin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]domain.FileDescriptor, 0, len(args))
			for _, arg := range args {
				files = append(files, domain.FileDescriptor{Name: filepath.Base(arg)})
			}
			return withRuntime(cmd, opts, func(rt *Runtime, out OutputFormatter) error {
				created, res, err := rt.Service.Ingest(cmd.Context(), files)
				if err != nil {
					return commandError("ingest results", err)
				}
				if archive {
					store, err := rt.Archive(cmd.Context())
					if err != nil {
						return WrapExitError(ExitCommandError, "open archive", err)
					}
					for i, record := range created {
						if err := archiveFile(cmd, store, record, args[i]); err != nil {
							return WrapExitError(ExitCommandError, "archive "+record.ID, err)
						}
					}
				}
				return out.Emit(created, res.Violations, func(w io.Writer) { renderResults(w, created) })
			})
		},
	}
	ingest.Flags().BoolVar(&archive, "archive", false, "copy file contents into the result archive")
	cmd.AddCommand(ingest)
	return cmd
}

func archiveFile(cmd *cobra.Command, store blob.Store, record domain.ResultRecord, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = store.Put(cmd.Context(), core.ResultArchiveKey(record), f, blob.ResultPutOptions(record, ""))
	return err
}
