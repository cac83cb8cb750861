// Package cli implements the tirecore command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"tirecore/internal/config"
)

// ValidFormats are the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags and the runtime factory shared by subcommands.
type RootOptions struct {
	Format string

	// OpenRuntime builds the service graph for a command. It defaults to the
	// environment-configured runtime.
	OpenRuntime func(ctx context.Context) (*Runtime, error)
}

// NewRootCommand creates the tirecore root command.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	if opts.OpenRuntime == nil {
		opts.OpenRuntime = func(ctx context.Context) (*Runtime, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return OpenRuntime(ctx, cfg)
		}
	}
	cmd := &cobra.Command{
		Use:           "tirecore",
		Short:         "Tire test metadata ledger",
		Long:          "Register spec combinations, schedule test orders, record evaluation sheets and ingest result files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("format %q must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newCombinationsCommand(opts))
	cmd.AddCommand(newOrdersCommand(opts))
	cmd.AddCommand(newSheetsCommand(opts))
	cmd.AddCommand(newFieldsCommand(opts))
	cmd.AddCommand(newResultsCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newProgressCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	return cmd
}

// withRuntime opens a runtime, runs fn and closes the runtime.
func withRuntime(cmd *cobra.Command, opts *RootOptions, fn func(rt *Runtime, out OutputFormatter) error) error {
	ctx := cmd.Context()
	rt, err := opts.OpenRuntime(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "open runtime", err)
	}
	err = fn(rt, OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()})
	if closeErr := rt.Close(ctx); closeErr != nil && err == nil {
		err = WrapExitError(ExitCommandError, "close runtime", closeErr)
	}
	return err
}
