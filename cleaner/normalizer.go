// Package cleaner dismisses consent dialogs and hides residual overlay UI.
package cleaner

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/models"
)

// labelsJS returns the visible label of every element matching the selector,
// in document order.
const labelsJS = `(sel) => Array.from(document.querySelectorAll(sel),
	(el) => String(el.innerText || el.value || el.ariaLabel || ""))`

// labelJS returns the label of a single element.
const labelJS = `function () { return String(this.innerText || this.value || this.ariaLabel || "") }`

// Report summarizes one normalization pass.
type Report struct {
	Frames     int
	Candidates int
	Clicked    int
	Failed     int
	Suppressed bool
}

// Normalizer runs the dismissal and suppression passes.
type Normalizer struct {
	matcher      *Matcher
	selectors    []string
	css          string
	clickTimeout time.Duration
	passTimeout  time.Duration
}

// New builds a Normalizer from the rule tables. clickTimeout bounds each
// click; passTimeout bounds a whole Run (zero means unbounded).
func New(rules config.Rules, clickTimeout, passTimeout time.Duration) *Normalizer {
	return &Normalizer{
		matcher:      NewMatcher(rules.ConsentPhrases),
		selectors:    rules.ConsentSelectors,
		css:          SuppressionCSS(rules.SuppressSubstrings),
		clickTimeout: clickTimeout,
		passTimeout:  passTimeout,
	}
}

// Run clicks matching consent controls in the top frame and every direct
// child frame, then injects the suppression stylesheet. At CleanupOff it
// does nothing at all. Every failure is absorbed.
func (n *Normalizer) Run(ctx context.Context, page *rod.Page, level models.CleanupLevel) Report {
	var rep Report
	if !level.Suppresses() {
		return rep
	}

	if n.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.passTimeout)
		defer cancel()
	}
	page = page.Context(ctx)
	for _, frame := range frames(page) {
		rep.Frames++
		n.dismiss(frame, &rep)
	}

	if err := page.AddStyleTag("", n.css); err != nil {
		slog.Warn("suppression stylesheet not injected", "error", err)
	} else {
		rep.Suppressed = true
	}

	slog.Info("normalization pass done",
		"frames", rep.Frames,
		"candidates", rep.Candidates,
		"clicked", rep.Clicked,
		"failed", rep.Failed,
	)
	return rep
}

// frames returns page followed by the documents of its direct iframes.
func frames(page *rod.Page) []*rod.Page {
	out := []*rod.Page{page}
	iframes, err := page.Elements("iframe")
	if err != nil {
		slog.Debug("iframe lookup failed", "error", err)
		return out
	}
	for _, el := range iframes {
		f, err := el.Frame()
		if err != nil {
			slog.Debug("iframe not accessible", "error", err)
			continue
		}
		out = append(out, f)
	}
	return out
}

// dismiss scans one frame selector by selector. Labels are read in a single
// evaluation per selector and matched in Go; only matches are touched.
func (n *Normalizer) dismiss(frame *rod.Page, rep *Report) {
	for _, sel := range n.selectors {
		res, err := frame.Eval(labelsJS, sel)
		if err != nil {
			slog.Debug("label scan failed", "selector", sel, "error", err)
			continue
		}
		labels := res.Value.Arr()
		rep.Candidates += len(labels)

		var hits []int
		for i, l := range labels {
			if n.matcher.Match(l.Str()) {
				hits = append(hits, i)
			}
		}
		if len(hits) == 0 {
			continue
		}

		els, err := frame.Elements(sel)
		if err != nil {
			slog.Debug("element lookup failed", "selector", sel, "error", err)
			continue
		}
		for _, i := range hits {
			if i >= len(els) {
				break
			}
			clicked, err := n.click(els[i])
			if err != nil {
				rep.Failed++
				slog.Debug("element action failed",
					"code", models.ErrCodeElementAction,
					"selector", sel,
					"label", labels[i].Str(),
					"error", err,
				)
				continue
			}
			if clicked {
				rep.Clicked++
			}
		}
	}
}

// click re-checks the label (an earlier click may have rewritten the DOM)
// and clicks the element if it is still a visible match.
func (n *Normalizer) click(el *rod.Element) (bool, error) {
	el = el.Timeout(n.clickTimeout)
	defer el.CancelTimeout()

	res, err := el.Eval(labelJS)
	if err != nil {
		return false, err
	}
	if !n.matcher.Match(res.Value.Str()) {
		return false, nil
	}
	visible, err := el.Visible()
	if err != nil || !visible {
		return false, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}
