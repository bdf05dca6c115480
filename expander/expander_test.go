package expander

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/pagecap/config"
)

func TestScrollPlan(t *testing.T) {
	assert.Equal(t, []int{200, 400, 600, 800, 1000}, scrollPlan(1000, 300, 200))
	assert.Equal(t, []int{800}, scrollPlan(800, 900, 200), "short pages only jump to the bottom")
	assert.Equal(t, []int{500}, scrollPlan(500, 100, 0))
}

func TestScrollPlan_Monotonic(t *testing.T) {
	plan := scrollPlan(12345, 900, 200)
	for i := 1; i < len(plan); i++ {
		assert.Greater(t, plan[i], plan[i-1])
	}
	assert.Equal(t, 12345, plan[len(plan)-1])
}

func TestNew_NormalizesPhrases(t *testing.T) {
	e := New(Options{Phrases: []string{" Show More ", "", "VOIR PLUS"}})
	assert.Equal(t, []string{"show more", "voir plus"}, e.phrases)
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.CaptureConfig{
		ScrollStep:    200,
		ScrollPause:   120 * time.Millisecond,
		ScrollSettle:  300 * time.Millisecond,
		ExpandTimeout: time.Minute,
	}
	opts := OptionsFrom(cfg, config.DefaultRules())
	assert.Equal(t, 200, opts.Step)
	assert.Equal(t, 120*time.Millisecond, opts.Pause)
	assert.Equal(t, 300*time.Millisecond, opts.Settle)
	assert.Contains(t, opts.Phrases, "load more")
	assert.Contains(t, opts.Phrases, "mostra di più")
}

func TestScripts_Embedded(t *testing.T) {
	assert.Contains(t, expandJS, "aria-expanded")
	assert.Contains(t, expandJS, "details")
	assert.Contains(t, scrollJS, "scrollTo")
}

func TestScrollScript_MeasuresHeightOnce(t *testing.T) {
	// Infinite feeds grow on every step; the walk must stop at the height
	// seen before it started.
	assert.Contains(t, scrollJS, "const max = height();")
	assert.Contains(t, scrollJS, "while (y + window.innerHeight < max)")
	assert.Contains(t, scrollJS, "window.scrollTo(0, max)")
	assert.NotContains(t, scrollJS, "< height()")

	plan := scrollPlan(2000, 900, 200)
	assert.Equal(t, []int{200, 400, 600, 800, 1000, 1200, 2000}, plan)
}
