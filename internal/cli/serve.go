package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tirecore/internal/adapters/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(rt *Runtime, _ OutputFormatter) error {
				if addr == "" {
					addr = rt.Config.HTTPAddr
				}
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					return WrapExitError(ExitCommandError, "listen", err)
				}
				archive, err := rt.Archive(cmd.Context())
				if err != nil {
					_ = ln.Close()
					return WrapExitError(ExitCommandError, "open archive", err)
				}
				handler := httpapi.NewHandler(rt.Service, archive)
				handler.Metrics = rt.Metrics
				handler.Logger = rt.Logger
				return serve(cmd.Context(), rt, ln, handler)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to TIRECORE_HTTP_ADDR)")
	return cmd
}

func serve(ctx context.Context, rt *Runtime, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	rt.Logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "serve", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	rt.Logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitCommandError, "shutdown", err)
	}
	return nil
}
