package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagecap/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pagecap",
	Short: "Capture a live web page into a single artifact",
	Long: "Drives a headless browser to a page, clears consent banners and overlays, " +
		"expands hidden content, waits for the DOM to settle and exports it as " +
		"png, jpg, webp, pdf, markdown or an MHTML archive.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		initLogger(cfg.Log, os.Stderr)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !isReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to w so
// stdout stays free for the status line.
func initLogger(lc config.LogConfig, w io.Writer) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
