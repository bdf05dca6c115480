package cleaner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/models"
)

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(config.DefaultRules().ConsentPhrases)

	tests := []struct {
		label string
		want  bool
	}{
		{"Accept all", true},
		{"  ACCEPT\n ALL  ", true},
		{"I agree", true},
		{"OK", true},
		{"Okay!", true},
		{"No thanks", true},
		{"Close ×", true},
		{"Tout accepter", true},
		{"Continuer sans accepter", true},
		{"Paramètres des cookies", true},
		{"Alle akzeptieren", true},
		{"Aceptar todo", true},
		{"Rifiuta tutto", true},
		{"Rejeitar", true},
		{"Book now", false},
		{"Token settings", false},
		{"Closet organizers", false},
		{"Allowance calculator", false},
		{"Read the article", false},
		{"", false},
		{"   ", false},
		{strings.Repeat("lorem ipsum ", 10) + "accept", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.label))
		})
	}
}

func TestMatcher_CoversFiveLanguages(t *testing.T) {
	m := NewMatcher(config.DefaultRules().ConsentPhrases)
	for _, label := range []string{"accept", "accepter", "akzeptieren", "aceptar", "accetta", "aceitar"} {
		assert.True(t, m.Match(label), label)
	}
}

func TestMatcher_CustomTable(t *testing.T) {
	m := NewMatcher([]string{" Got It ", "", "zustimmen"})
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("got it"))
	assert.True(t, m.Match("Zustimmen"))
	assert.False(t, m.Match("accept"))
}

func TestMatcher_Empty(t *testing.T) {
	m := NewMatcher(nil)
	assert.False(t, m.Match("accept all"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("ok", "ok"))
	assert.True(t, containsWord("book ok", "ok"))
	assert.False(t, containsWord("book", "ok"))
	assert.False(t, containsWord("oké", "ok"))
	assert.True(t, containsWord("«ok»", "ok"))
	assert.False(t, containsWord("", "ok"))
}

func TestSuppressionCSS(t *testing.T) {
	css := SuppressionCSS(config.DefaultRules().SuppressSubstrings)

	for _, s := range []string{"cookie", "consent", "gdpr", "banner", "overlay", "popover", "modal", "subscribe", "newsletter"} {
		assert.Contains(t, css, `[id*="`+s+`" i]`)
		assert.Contains(t, css, `[class*="`+s+`" i]`)
	}
	assert.Contains(t, css, "display: none !important")
	assert.Contains(t, css, "visibility: hidden !important")
	assert.Contains(t, css, "opacity: 0 !important")
	assert.Contains(t, css, "overflow: auto !important")
}

func TestSuppressionCSS_EscapesAndSkipsBlanks(t *testing.T) {
	css := SuppressionCSS([]string{"", `a"b`})
	assert.Contains(t, css, `[class*="a\"b" i]`)
	assert.NotContains(t, css, `[id*="" i]`)

	css = SuppressionCSS(nil)
	assert.NotContains(t, css, "display: none")
	assert.Contains(t, css, "overflow: auto !important")
}

func TestNormalizer_OffTouchesNothing(t *testing.T) {
	n := New(config.DefaultRules(), time.Second, time.Second)

	// A nil page would panic on first use, so an empty report proves the
	// pass returned before reaching the browser.
	var rep Report
	assert.NotPanics(t, func() {
		rep = n.Run(context.Background(), nil, models.CleanupOff)
	})
	assert.Equal(t, Report{}, rep)
}
