// Package pipeline runs capture jobs from page request to written artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/models"
	"github.com/use-agent/pagecap/naming"
)

// Exporter writes the artifact of a job from a settled page.
type Exporter interface {
	Export(ctx context.Context, src export.Source, job models.CaptureJob) (*models.Artifact, error)
}

// Timings are the idle-wait bounds used by the Runner.
type Timings struct {
	IdleQuiet         time.Duration
	IdleTimeout       time.Duration
	ReloadIdleQuiet   time.Duration
	ReloadIdleTimeout time.Duration
}

// TimingsFrom extracts the Runner timings from the capture configuration.
func TimingsFrom(cfg config.CaptureConfig) Timings {
	return Timings{
		IdleQuiet:         cfg.IdleQuiet,
		IdleTimeout:       cfg.IdleTimeout,
		ReloadIdleQuiet:   cfg.ReloadIdleQuiet,
		ReloadIdleTimeout: cfg.ReloadIdleTimeout,
	}
}

// Runner executes capture jobs one at a time.
type Runner struct {
	newDriver DriverFactory
	exporter  Exporter
	timings   Timings
	now       func() time.Time

	mu        sync.Mutex
	running   atomic.Bool
	completed atomic.Int64
	failed    atomic.Int64
}

// NewRunner returns a Runner.
func NewRunner(factory DriverFactory, exporter Exporter, timings Timings) *Runner {
	return &Runner{
		newDriver: factory,
		exporter:  exporter,
		timings:   timings,
		now:       time.Now,
	}
}

// NewJob validates in and builds a job writing to outputDir, with its
// scratch directory at <outputDir>/.capture-<unix millis>.
func (r *Runner) NewJob(in models.JobInput, outputDir string) (models.CaptureJob, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return models.CaptureJob{}, models.NewCaptureError(models.ErrCodeInvalidInput, "invalid output directory", err)
	}
	scratch := filepath.Join(abs, fmt.Sprintf(".capture-%d", r.now().UnixMilli()))
	return models.NewCaptureJob(in, abs, scratch, naming.DeriveName)
}

// Stats reports the jobs run so far.
func (r *Runner) Stats() models.JobStats {
	return models.JobStats{
		Running:   r.running.Load(),
		Completed: r.completed.Load(),
		Failed:    r.failed.Load(),
	}
}

// Run executes job. Stages run strictly in order: network policy (complete
// only), navigation, content-root wait, normalization, reload watch and
// recovery, expansion, lazy load, idle wait, export. Only launch,
// navigation and export failures end the job; every other stage degrades.
// The browser and the scratch directory are released on every path.
func (r *Runner) Run(ctx context.Context, job models.CaptureJob) (art *models.Artifact, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)

	log := slog.With("url", job.URL, "format", job.Format, "clean", job.Cleanup.String())
	start := r.now()
	state := StateInitial
	enter := func(s State) {
		state = s
		log.Info("capture state", "state", s)
	}

	defer func() {
		if err != nil {
			log.Error("capture failed", "state", state, "error", err)
			enter(StateFailed)
			r.failed.Add(1)
			return
		}
		r.completed.Add(1)
		log.Info("capture done", "name", art.Name, "elapsed", r.now().Sub(start))
	}()

	// ── 1. Scratch directory ─────────────────────────────────────────
	if job.ScratchDir != "" {
		if err := os.MkdirAll(job.ScratchDir, 0o755); err != nil {
			return nil, models.NewCaptureError(models.ErrCodeInternal, "failed to create scratch directory", err)
		}
		defer func() {
			if rmErr := os.RemoveAll(job.ScratchDir); rmErr != nil {
				log.Debug("scratch directory not removed", "dir", job.ScratchDir, "error", rmErr)
			}
		}()
	}

	// ── 2. Browser session ───────────────────────────────────────────
	d := r.newDriver()
	if err := d.Open(ctx, job.ScratchDir); err != nil {
		d.Close()
		return nil, ensureCode(err, models.ErrCodeBrowserLaunch, "failed to launch browser")
	}
	defer func() {
		d.Close()
		log.Info("capture state", "state", StateClosed)
	}()

	// ── 3. Network policy (before navigation) ────────────────────────
	if job.Cleanup.BlocksNetwork() {
		if err := d.Block(ctx); err != nil {
			log.Warn("network policy not installed", "error", err)
		}
	}

	// ── 4. Navigation (fatal) ────────────────────────────────────────
	if err := d.Load(ctx, job.URL); err != nil {
		return nil, ensureCode(err, models.ErrCodeNavigation, "navigation failed")
	}
	enter(StateLoaded)

	// ── 5. First stabilization (soft) ────────────────────────────────
	if err := d.WaitContentRoot(ctx); err != nil {
		log.Warn("content root not found, continuing", "error", err)
	} else {
		enter(StateContentReady)
	}

	// ── 6. Normalization ─────────────────────────────────────────────
	if job.Cleanup.Suppresses() {
		d.Normalize(ctx, job.Cleanup)
	}
	enter(StateCleaned)

	// ── 7. Reload detection and recovery ─────────────────────────────
	if d.WatchReload(ctx) {
		enter(StateReloadPending)
		d.ResetStability()
		if err := d.WaitContentRoot(ctx); err != nil {
			log.Warn("content root not found after reload", "error", err)
		}
		if err := d.WaitIdle(ctx, r.timings.ReloadIdleQuiet, r.timings.ReloadIdleTimeout); err != nil {
			log.Warn("page did not settle after reload", "error", err)
		}
		if job.Cleanup.Suppresses() {
			d.Normalize(ctx, job.Cleanup)
		}
		enter(StateReloadRecovered)
	}

	// ── 8. Expansion and lazy load ───────────────────────────────────
	d.Expand(ctx)
	d.LazyLoad(ctx)
	enter(StateExpanded)

	// ── 9. Final idle wait (soft) ────────────────────────────────────
	if err := d.WaitIdle(ctx, r.timings.IdleQuiet, r.timings.IdleTimeout); err != nil {
		log.Warn("page did not settle, exporting anyway", "error", err)
	}
	enter(StateStable)

	// ── 10. Export (fatal) ───────────────────────────────────────────
	art, err = r.exporter.Export(ctx, d.Source(), job)
	if err != nil {
		return nil, ensureCode(err, models.ErrCodeExportWrite, "export failed")
	}
	enter(StateExported)
	return art, nil
}

// ensureCode wraps err in a CaptureError with code unless it already is one.
func ensureCode(err error, code, msg string) error {
	var ce *models.CaptureError
	if errors.As(err, &ce) {
		return err
	}
	return models.NewCaptureError(code, msg, err)
}
