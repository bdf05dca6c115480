// Package expander opens collapsed content and triggers lazy loading.
package expander

import (
	"context"
	_ "embed"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/models"
)

//go:embed expand.js
var expandJS string

//go:embed scroll.js
var scrollJS string

// Options drives the expansion and lazy-load passes.
type Options struct {
	Phrases []string
	Step    int           // px per scroll increment
	Pause   time.Duration // between increments
	Settle  time.Duration // after the final jump to the bottom
	Timeout time.Duration // per pass
}

// OptionsFrom builds Options from the capture configuration.
func OptionsFrom(cfg config.CaptureConfig, rules config.Rules) Options {
	return Options{
		Phrases: rules.ExpandPhrases,
		Step:    cfg.ScrollStep,
		Pause:   cfg.ScrollPause,
		Settle:  cfg.ScrollSettle,
		Timeout: cfg.ExpandTimeout,
	}
}

// ExpandResult counts what the expansion pass touched.
type ExpandResult struct {
	Opened  int
	Clicked int
	Failed  int
}

// Expander runs both passes against a page.
type Expander struct {
	opts    Options
	phrases []string
}

// New returns an Expander.
func New(opts Options) *Expander {
	phrases := make([]string, 0, len(opts.Phrases))
	for _, p := range opts.Phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Expander{opts: opts, phrases: phrases}
}

// Expand opens every <details> and clicks "show more" style controls and
// collapsed aria-expanded toggles in one in-page evaluation. Per-element
// failures are counted in the page and never surface.
func (e *Expander) Expand(ctx context.Context, page *rod.Page) ExpandResult {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res, err := page.Context(ctx).Eval(expandJS, e.phrases)
	if err != nil {
		slog.Warn("expansion pass failed", "code", models.ErrCodeElementAction, "error", err)
		return ExpandResult{}
	}
	out := ExpandResult{
		Opened:  res.Value.Get("opened").Int(),
		Clicked: res.Value.Get("clicked").Int(),
		Failed:  res.Value.Get("failed").Int(),
	}
	slog.Info("expansion pass done", "opened", out.Opened, "clicked", out.Clicked, "failed", out.Failed)
	return out
}

// LazyLoad scrolls the document in fixed increments down to the bottom,
// then jumps to the absolute bottom and pauses once more.
func (e *Expander) LazyLoad(ctx context.Context, page *rod.Page) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	res, err := page.Context(ctx).Eval(scrollJS,
		e.opts.Step,
		e.opts.Pause.Milliseconds(),
		e.opts.Settle.Milliseconds(),
	)
	if err != nil {
		slog.Warn("lazy-load scroll did not finish", "error", err)
		return
	}
	slog.Debug("lazy-load scroll done",
		"steps", res.Value.Get("steps").Int(),
		"height", res.Value.Get("height").Int(),
		"grown", res.Value.Get("grown").Int(),
	)
}

// scrollPlan returns the offsets scroll.js visits for a document whose
// height, measured once before the walk, is height; the last offset is the
// final jump to that height.
func scrollPlan(height, viewport, step int) []int {
	if step <= 0 {
		return []int{height}
	}
	var plan []int
	for y := 0; y+viewport < height; {
		y += step
		plan = append(plan, y)
	}
	return append(plan, height)
}
