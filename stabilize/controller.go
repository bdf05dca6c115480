// Package stabilize drives page navigation and decides when a page is
// settled enough to be exported.
package stabilize

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/models"
)

//go:embed watcher.js
var watcherJS string

// Controller owns the navigation protocol of one page together with the
// page's StabilityState.
type Controller struct {
	page  *rod.Page
	cfg   config.CaptureConfig
	state *StabilityState
	clock Clock
}

// New returns a Controller for page.
func New(page *rod.Page, cfg config.CaptureConfig) *Controller {
	return &Controller{
		page:  page,
		cfg:   cfg,
		state: &StabilityState{},
		clock: SystemClock,
	}
}

// State exposes the page's stability state.
func (c *Controller) State() *StabilityState { return c.state }

// Load navigates to url and waits for the load event, bounded by the
// navigation timeout. Any failure is fatal to the job.
func (c *Controller) Load(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()

	p := c.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, fmt.Sprintf("navigation to %s failed", url))
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, fmt.Sprintf("%s did not finish loading", url))
	}
	slog.Debug("page loaded", "url", url)
	return nil
}

// WaitContentRoot waits for the content-root selector. A timeout returns a
// SELECTOR_WAIT_TIMEOUT error that callers only log.
func (c *Controller) WaitContentRoot(ctx context.Context) error {
	if c.cfg.ContentSelector == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ContentTimeout)
	defer cancel()

	if _, err := c.page.Context(ctx).Element(c.cfg.ContentSelector); err != nil {
		return models.NewCaptureError(
			models.ErrCodeSelectorTimeout,
			fmt.Sprintf("content root %q not found within %s", c.cfg.ContentSelector, c.cfg.ContentTimeout),
			err,
		)
	}
	return nil
}

// WatchReload observes top-frame navigations for the configured reload
// window and reports whether one happened. A reload that starts after the
// window is not seen.
func (c *Controller) WatchReload(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ReloadWindow)
	defer cancel()

	restore := c.page.EnableDomain(&proto.PageEnable{})
	defer restore()

	var reloaded atomic.Bool
	wait := c.page.Context(ctx).EachEvent(func(e *proto.PageFrameNavigated) bool {
		if e.Frame != nil && e.Frame.ParentID == "" {
			reloaded.Store(true)
			return true
		}
		return false
	})
	wait()

	if reloaded.Load() {
		slog.Info("top frame navigated after cleanup", "url", c.currentURL())
	}
	return reloaded.Load()
}

// ResetAfterReload discards the stability state of the previous document.
func (c *Controller) ResetAfterReload() {
	c.state.Reset()
}

// WaitIdle waits for the default quiet period before export.
func (c *Controller) WaitIdle(ctx context.Context) error {
	return c.WaitIdleFor(ctx, c.cfg.IdleQuiet, c.cfg.IdleTimeout)
}

// WaitIdleFor waits until the document has been mutation-free for quiet,
// bounded by timeout.
func (c *Controller) WaitIdleFor(ctx context.Context, quiet, timeout time.Duration) error {
	return WaitIdle(ctx, c, c.state, IdleOptions{
		Quiet:   quiet,
		Poll:    c.cfg.IdlePoll,
		Timeout: timeout,
	}, c.clock)
}

// SinceLastMutation implements Prober by evaluating the watcher script,
// which installs itself on first use in each document.
func (c *Controller) SinceLastMutation(ctx context.Context) (time.Duration, error) {
	res, err := c.page.Context(ctx).Eval(watcherJS)
	if err != nil {
		return 0, err
	}
	return time.Duration(res.Value.Int()) * time.Millisecond, nil
}

func (c *Controller) currentURL() string {
	info, err := c.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// categorizeError wraps navigation errors so a deadline maps to
// NAVIGATION_TIMEOUT and anything else to NAVIGATION_FAILED.
func categorizeError(err error, msg string) *models.CaptureError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCaptureError(models.ErrCodeNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewCaptureError(models.ErrCodeNavigationTimeout, "navigation canceled", err)
	default:
		return models.NewCaptureError(models.ErrCodeNavigation, msg, err)
	}
}
