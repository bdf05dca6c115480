package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/pagecap/browser"
	"github.com/use-agent/pagecap/cleaner"
	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/expander"
	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/models"
	"github.com/use-agent/pagecap/network"
	"github.com/use-agent/pagecap/stabilize"
)

// rodDriver drives a real browser session.
type rodDriver struct {
	manager    *browser.Manager
	policy     *network.Policy
	normalizer *cleaner.Normalizer
	expander   *expander.Expander
	capture    config.CaptureConfig

	session *browser.Session
	ctrl    *stabilize.Controller
	router  *rod.HijackRouter
}

// NewRodDriverFactory wires the browser-backed components from cfg.
func NewRodDriverFactory(cfg *config.Config) (DriverFactory, error) {
	policy, err := network.NewPolicy(cfg.Rules.BlockPatterns)
	if err != nil {
		return nil, err
	}
	manager := browser.NewManager(cfg.Browser)
	normalizer := cleaner.New(cfg.Rules, cfg.Capture.ClickTimeout, cfg.Capture.NormalizeTimeout)
	exp := expander.New(expander.OptionsFrom(cfg.Capture, cfg.Rules))

	return func() Driver {
		return &rodDriver{
			manager:    manager,
			policy:     policy,
			normalizer: normalizer,
			expander:   exp,
			capture:    cfg.Capture,
		}
	}, nil
}

func (d *rodDriver) Open(ctx context.Context, scratchDir string) error {
	s, err := d.manager.Acquire(ctx, scratchDir)
	if err != nil {
		return err
	}
	d.session = s
	d.ctrl = stabilize.New(s.Page(), d.capture)
	return nil
}

func (d *rodDriver) Block(context.Context) error {
	router, err := d.policy.Attach(d.session.Page())
	if err != nil {
		return err
	}
	d.router = router
	return nil
}

func (d *rodDriver) Load(ctx context.Context, url string) error {
	return d.ctrl.Load(ctx, url)
}

func (d *rodDriver) WaitContentRoot(ctx context.Context) error {
	return d.ctrl.WaitContentRoot(ctx)
}

func (d *rodDriver) Normalize(ctx context.Context, level models.CleanupLevel) {
	d.normalizer.Run(ctx, d.session.Page(), level)
}

func (d *rodDriver) WatchReload(ctx context.Context) bool {
	return d.ctrl.WatchReload(ctx)
}

func (d *rodDriver) ResetStability() {
	d.ctrl.ResetAfterReload()
}

func (d *rodDriver) Expand(ctx context.Context) {
	d.expander.Expand(ctx, d.session.Page())
}

func (d *rodDriver) LazyLoad(ctx context.Context) {
	d.expander.LazyLoad(ctx, d.session.Page())
}

func (d *rodDriver) WaitIdle(ctx context.Context, quiet, timeout time.Duration) error {
	return d.ctrl.WaitIdleFor(ctx, quiet, timeout)
}

func (d *rodDriver) Source() export.Source {
	return d.session
}

func (d *rodDriver) Close() {
	if d.router != nil {
		_ = d.router.Stop()
		blocked, allowed := d.policy.Stats()
		slog.Debug("network policy detached", "blocked_total", blocked, "allowed_total", allowed)
		d.router = nil
	}
	d.session.Release()
	d.session = nil
}
