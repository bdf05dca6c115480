package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagecap/api"
	"github.com/use-agent/pagecap/cache"
	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve capture jobs over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		slog.Info("pagecap starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"output_dir", cfg.Output.Dir,
		)

		// ── 1. Pipeline ─────────────────────────────────────────────
		factory, err := pipeline.NewRodDriverFactory(cfg)
		if err != nil {
			return err
		}
		runner := pipeline.NewRunner(factory, export.NewEngine(cfg.Capture.ImageQuality), pipeline.TimingsFrom(cfg.Capture))

		// ── 2. Router ───────────────────────────────────────────────
		router := api.NewRouter(runner, cfg, cache.New(cfg.Cache.MaxEntries), time.Now())

		// ── 3. Serve until signalled ────────────────────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{Addr: addr, Handler: router}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		// ── 4. Graceful shutdown ────────────────────────────────────
		// In-flight jobs get one navigation timeout to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Capture.NavigationTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("pagecap stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default $PAGECAP_PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}
