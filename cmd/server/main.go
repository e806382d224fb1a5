package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"unit-converter/internal/app"
	"unit-converter/internal/httputil"
	"unit-converter/internal/metrics"
	"unit-converter/internal/version"
)

const (
	transportStdio = "stdio"
	transportHTTP  = "http"

	mcpPath         = "/mcp"
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var transport, addr string
	cmd := &cobra.Command{
		Use:          "unitconv-server",
		Short:        "MCP tool server exposing unit conversions",
		Version:      version.String("unitconv-server"),
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := app.Build(app.ServerLogLevel)
			if err != nil {
				slog.Default().Error("failed to build dependencies", "err", err)
				return err
			}
			if addr == "" {
				addr = deps.Config.HTTPAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, deps, transport, addr)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.Flags().StringVar(&transport, "transport", transportStdio, "transport to serve MCP on: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for --transport=http (default HTTP_ADDR)")
	return cmd
}

func run(ctx context.Context, deps app.Deps, transport, addr string) error {
	switch transport {
	case transportStdio:
		return deps.ToolServer.RunStdio(ctx)
	case transportHTTP:
		return serveHTTP(ctx, deps, addr)
	default:
		return fmt.Errorf("invalid transport %q (valid options: %s, %s)", transport, transportStdio, transportHTTP)
	}
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)
	r.Handle(mcpPath, deps.ToolServer.HTTPHandler())
	r.Get("/units", httputil.UnitsHandler(deps.Log, deps.Converter.SupportedUnits()))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle(metrics.MetricsPath, metrics.Handler())
	return r
}

func serveHTTP(ctx context.Context, deps app.Deps, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("tool server listening", "addr", addr, "mcp_path", mcpPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		deps.Log.Info("tool server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
