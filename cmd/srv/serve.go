package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/spf13/cobra"

	"github.com/webframp/otalog/srv"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listenFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rich and plain-text changelogs over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			if listenFlag != "" {
				cfg.ListenAddr = listenFlag
			}
			if cfg.Hostname == "localhost" {
				if h, err := os.Hostname(); err == nil {
					cfg.Hostname = h
				}
			}

			shutdownOtel := setupTelemetry()
			defer shutdownOtel()

			markers := srv.NewMarkerClient()
			markers.CreateDeployMarker()
			markers.CreateCatalogLoadMarker(cfg.CatalogDir, store.Len())

			server, err := srv.New(cfg, store)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- server.Serve(cfg.ListenAddr) }()

			select {
			case err := <-errc:
				return err
			case <-runCtx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errc
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "Address to listen on (overrides config)")
	return cmd
}

// setupTelemetry configures OpenTelemetry export when an exporter is
// configured in the environment. The returned function flushes spans.
func setupTelemetry() func() {
	if os.Getenv("HONEYCOMB_API_KEY") == "" && os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func() {}
	}
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName("otalog"),
		otelconfig.WithServiceVersion(srv.Version),
	)
	if err != nil {
		slog.Warn("opentelemetry disabled", "error", err)
		return func() {}
	}
	slog.Info("opentelemetry enabled")
	return shutdown
}
