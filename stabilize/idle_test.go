package stabilize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pagecap/models"
)

// fakeClock advances only when the idle loop sleeps.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// fakePage simulates the in-page watcher against the fake clock. Mutations
// are scheduled as offsets from the start of the wait.
type fakePage struct {
	clock     *fakeClock
	start     time.Time
	mutations []time.Duration
	installed bool
	last      time.Time
	failUntil time.Duration
	probes    int
}

func (p *fakePage) SinceLastMutation(context.Context) (time.Duration, error) {
	p.probes++
	elapsed := p.clock.Now().Sub(p.start)
	if elapsed < p.failUntil {
		return 0, errors.New("execution context was destroyed")
	}
	if !p.installed {
		p.installed = true
		p.last = p.clock.Now()
		return 0, nil
	}
	for _, m := range p.mutations {
		if m <= elapsed && p.start.Add(m).After(p.last) {
			p.last = p.start.Add(m)
		}
	}
	return p.clock.Now().Sub(p.last), nil
}

func newFakePage(clk *fakeClock, mutations ...time.Duration) *fakePage {
	return &fakePage{clock: clk, start: clk.Now(), mutations: mutations}
}

var defaultOpts = IdleOptions{
	Quiet:   1200 * time.Millisecond,
	Poll:    100 * time.Millisecond,
	Timeout: 30 * time.Second,
}

func TestWaitIdle_NoMutationsResolvesAtQuietPeriod(t *testing.T) {
	clk := newFakeClock()
	page := newFakePage(clk)
	st := &StabilityState{}

	err := WaitIdle(context.Background(), page, st, defaultOpts, clk)
	require.NoError(t, err)

	waited := clk.Now().Sub(page.start)
	assert.GreaterOrEqual(t, waited, defaultOpts.Quiet)
	assert.LessOrEqual(t, waited, defaultOpts.Quiet+defaultOpts.Poll)
	assert.True(t, st.Installed())
}

func TestWaitIdle_NeverBeforeQuietAfterLastMutation(t *testing.T) {
	clk := newFakeClock()
	page := newFakePage(clk, 500*time.Millisecond, 1500*time.Millisecond, 2400*time.Millisecond, 3300*time.Millisecond)
	st := &StabilityState{}

	err := WaitIdle(context.Background(), page, st, defaultOpts, clk)
	require.NoError(t, err)

	resolvedAt := clk.Now().Sub(page.start)
	assert.GreaterOrEqual(t, resolvedAt, 3300*time.Millisecond+defaultOpts.Quiet)
	assert.LessOrEqual(t, resolvedAt, 3300*time.Millisecond+defaultOpts.Quiet+defaultOpts.Poll)

	last, ok := st.LastMutation()
	require.True(t, ok)
	assert.Equal(t, page.start.Add(3300*time.Millisecond), last)
}

func TestWaitIdle_TimeoutIsSoftError(t *testing.T) {
	clk := newFakeClock()
	var churn []time.Duration
	for d := time.Duration(0); d < time.Minute; d += 500 * time.Millisecond {
		churn = append(churn, d)
	}
	page := newFakePage(clk, churn...)
	st := &StabilityState{}

	opts := defaultOpts
	opts.Timeout = 5 * time.Second
	err := WaitIdle(context.Background(), page, st, opts, clk)

	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeIdleTimeout))
	elapsed := clk.Now().Sub(page.start)
	assert.GreaterOrEqual(t, elapsed, opts.Timeout)
	assert.Less(t, elapsed, opts.Timeout+time.Second)
}

func TestWaitIdle_ProbeErrorsRestartQuietPeriod(t *testing.T) {
	clk := newFakeClock()
	page := newFakePage(clk)
	page.failUntil = time.Second
	st := &StabilityState{}

	err := WaitIdle(context.Background(), page, st, defaultOpts, clk)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, clk.Now().Sub(page.start), time.Second+defaultOpts.Quiet)
}

func TestWaitIdle_CanceledContext(t *testing.T) {
	clk := newFakeClock()
	page := newFakePage(clk)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitIdle(ctx, page, &StabilityState{}, defaultOpts, blockingClock{clk})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.ErrCodeIdleTimeout))
	assert.ErrorIs(t, err, context.Canceled)
}

// blockingClock never fires, so only the context can end the wait.
type blockingClock struct{ *fakeClock }

func (blockingClock) After(time.Duration) <-chan time.Time { return nil }

func TestStabilityState(t *testing.T) {
	var st StabilityState
	now := time.Unix(100, 0)

	assert.False(t, st.Installed())
	assert.Zero(t, st.SinceLastMutation(now))

	st.Observe(now, 250*time.Millisecond)
	assert.True(t, st.Installed())
	assert.Equal(t, 250*time.Millisecond, st.SinceLastMutation(now))
	assert.Equal(t, time.Second+250*time.Millisecond, st.SinceLastMutation(now.Add(time.Second)))

	st.Observe(now, -time.Second)
	assert.Zero(t, st.SinceLastMutation(now))

	st.Reset()
	assert.False(t, st.Installed())
	_, ok := st.LastMutation()
	assert.False(t, ok)
}

func TestCategorizeError(t *testing.T) {
	err := categorizeError(context.DeadlineExceeded, "slow")
	assert.Equal(t, models.ErrCodeNavigationTimeout, err.Code)

	err = categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "dns")
	assert.Equal(t, models.ErrCodeNavigation, err.Code)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

// stuckPage answers only when the context gives up, like an Eval against a
// page whose main thread is blocked.
type stuckPage struct{}

func (stuckPage) SinceLastMutation(ctx context.Context) (time.Duration, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestWaitIdle_UnresponsivePageEndsAtTimeout(t *testing.T) {
	opts := IdleOptions{Quiet: time.Second, Poll: 10 * time.Millisecond, Timeout: 200 * time.Millisecond}

	done := make(chan error, 1)
	go func() { done <- WaitIdle(context.Background(), stuckPage{}, &StabilityState{}, opts, nil) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, models.IsCode(err, models.ErrCodeIdleTimeout))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "did not settle within 200ms")
	case <-time.After(3 * time.Second):
		t.Fatal("idle wait outlived its timeout")
	}
}
