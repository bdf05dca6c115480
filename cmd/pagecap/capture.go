package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/models"
	"github.com/use-agent/pagecap/pipeline"
	"github.com/use-agent/pagecap/webhook"
)

var (
	captureWebpage string
	captureClean   string
	captureFormat  string
	captureName    string
	captureOut     string
	captureRules   string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run one capture job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureRules != "" {
			if err := cfg.LoadRulesFile(captureRules); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if captureOut != "" {
			cfg.Output.Dir = captureOut
		}

		factory, err := pipeline.NewRodDriverFactory(cfg)
		if err != nil {
			return err
		}
		runner := pipeline.NewRunner(factory, export.NewEngine(cfg.Capture.ImageQuality), pipeline.TimingsFrom(cfg.Capture))

		in := models.JobInput{
			Webpage: captureWebpage,
			Clean:   captureClean,
			Format:  captureFormat,
			Name:    captureName,
		}
		return runCapture(cmd.Context(), runner, in, cfg, cmd.OutOrStdout())
	},
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&captureWebpage, "webpage", os.Getenv("INPUT_WEBPAGE"), "page URL to capture (env INPUT_WEBPAGE)")
	f.StringVar(&captureClean, "clean", envOr("INPUT_CLEAN", models.DefaultCleanupLevel.String()), "cleanup level: off, banners or complete (env INPUT_CLEAN)")
	f.StringVar(&captureFormat, "format", os.Getenv("INPUT_FORMAT"), "export format: png, jpg, jpeg, webp, pdf, md or raw (env INPUT_FORMAT)")
	f.StringVar(&captureName, "name", os.Getenv("INPUT_NAME"), "artifact base name, derived from the URL when empty (env INPUT_NAME)")
	f.StringVar(&captureOut, "out", "", "output directory (default $PAGECAP_OUTPUT_DIR, $GITHUB_WORKSPACE or cwd)")
	f.StringVar(&captureRules, "rules", "", "YAML rules file overriding the phrase tables and block list")
	rootCmd.AddCommand(captureCmd)
}

// jobRunner is the part of pipeline.Runner the command needs.
type jobRunner interface {
	NewJob(in models.JobInput, outputDir string) (models.CaptureJob, error)
	Run(ctx context.Context, job models.CaptureJob) (*models.Artifact, error)
}

// reportedError marks an error whose status line was already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func isReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// runCapture executes one job and reports it on out, in $GITHUB_OUTPUT and
// to the configured webhook.
func runCapture(ctx context.Context, rn jobRunner, in models.JobInput, c *config.Config, out io.Writer) error {
	job, err := rn.NewJob(in, c.Output.Dir)
	if err != nil {
		return fail(out, err)
	}

	start := time.Now()
	art, err := rn.Run(ctx, job)
	slog.Info("capture finished",
		"url", job.URL,
		"format", job.Format,
		"duration", time.Since(start).Round(time.Millisecond).String(),
		"ok", err == nil,
	)

	if c.Webhook.URL != "" {
		wctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if herr := webhook.Deliver(wctx, c.Webhook.URL, c.Webhook.Secret, webhook.NewEvent(job, art, err)); herr != nil {
			slog.Warn("webhook delivery failed", "url", c.Webhook.URL, "error", herr)
		}
		cancel()
	}

	if err != nil {
		return fail(out, err)
	}

	if err := writeOutputs(os.Getenv("GITHUB_OUTPUT"), art); err != nil {
		return fail(out, err)
	}
	fmt.Fprintf(out, "✅ Exported %s at %s\n", art.Name, art.Path)
	return nil
}

func fail(out io.Writer, err error) error {
	fmt.Fprintf(out, "❌ %s\n", statusMessage(err))
	return reportedError{err: err}
}

// statusMessage is the human-readable message of err, without its code.
func statusMessage(err error) string {
	var ce *models.CaptureError
	if errors.As(err, &ce) {
		if ce.Err != nil {
			return ce.Message + ": " + ce.Err.Error()
		}
		return ce.Message
	}
	return err.Error()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
