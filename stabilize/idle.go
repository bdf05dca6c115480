package stabilize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/pagecap/models"
)

// Prober reads the in-page mutation watcher. SinceLastMutation installs the
// watcher when it is missing, in which case the reported duration is zero.
type Prober interface {
	SinceLastMutation(ctx context.Context) (time.Duration, error)
}

// Clock abstracts time for the idle wait.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// IdleOptions bounds an idle wait.
type IdleOptions struct {
	Quiet   time.Duration // mutation-free period required
	Poll    time.Duration // probe interval
	Timeout time.Duration // overall bound
}

// WaitIdle polls p until the document has been free of mutations for
// opts.Quiet, recording every probe in st. It returns nil once quiet, or an
// IDLE_WAIT_TIMEOUT error when opts.Timeout elapses first. The timeout is a
// soft condition: callers log it and go on.
//
// A probe error is treated like a fresh mutation: the page is mid-navigation
// or the watcher is being reinstalled, so the quiet period restarts.
//
// Probes share a context bounded by opts.Timeout, so a page whose main
// thread never answers still ends the wait on time.
func WaitIdle(ctx context.Context, p Prober, st *StabilityState, opts IdleOptions, clk Clock) error {
	if clk == nil {
		clk = SystemClock
	}
	if opts.Poll <= 0 {
		opts.Poll = 100 * time.Millisecond
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := clk.Now()
	deadline := start.Add(opts.Timeout)

	for {
		now := clk.Now()
		since, err := p.SinceLastMutation(ctx)
		if err != nil && ctx.Err() != nil {
			return idleDone(ctx, opts.Timeout)
		}
		if err != nil {
			slog.Debug("idle probe failed", "error", err)
			since = 0
		}
		st.Observe(now, since)

		if st.SinceLastMutation(now) >= opts.Quiet {
			slog.Debug("page idle", "waited", now.Sub(start), "quiet", opts.Quiet)
			return nil
		}
		if !now.Before(deadline) {
			return models.NewCaptureError(
				models.ErrCodeIdleTimeout,
				fmt.Sprintf("page did not settle within %s", opts.Timeout),
				nil,
			)
		}

		select {
		case <-ctx.Done():
			return idleDone(ctx, opts.Timeout)
		case <-clk.After(opts.Poll):
		}
	}
}

func idleDone(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewCaptureError(models.ErrCodeIdleTimeout,
			fmt.Sprintf("page did not settle within %s", timeout), ctx.Err())
	}
	return models.NewCaptureError(models.ErrCodeIdleTimeout, "idle wait canceled", ctx.Err())
}
