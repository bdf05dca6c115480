package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GITHUB_WORKSPACE", dir)
	t.Setenv("PAGECAP_OUTPUT_DIR", "")
	t.Setenv("PAGECAP_RULES_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Output.Dir)
	assert.Equal(t, 1366, cfg.Browser.ViewportWidth)
	assert.Equal(t, 900, cfg.Browser.ViewportHeight)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 120*time.Second, cfg.Capture.NavigationTimeout)
	assert.Equal(t, 60*time.Second, cfg.Capture.ContentTimeout)
	assert.Equal(t, "main, article, [role=main]", cfg.Capture.ContentSelector)
	assert.Equal(t, 4*time.Second, cfg.Capture.ReloadWindow)
	assert.Equal(t, 1200*time.Millisecond, cfg.Capture.IdleQuiet)
	assert.Equal(t, 100*time.Millisecond, cfg.Capture.IdlePoll)
	assert.Equal(t, 30*time.Second, cfg.Capture.IdleTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Capture.ReloadIdleQuiet)
	assert.Equal(t, 45*time.Second, cfg.Capture.ReloadIdleTimeout)
	assert.Equal(t, 200, cfg.Capture.ScrollStep)
	assert.Equal(t, 85, cfg.Capture.ImageQuality)
	assert.Equal(t, 30*time.Second, cfg.Capture.NormalizeTimeout)
	assert.Len(t, cfg.Rules.BlockPatterns, 16)
}

func TestLoad_OutputDirFallsBackToWorkingDir(t *testing.T) {
	t.Setenv("GITHUB_WORKSPACE", "")
	t.Setenv("PAGECAP_OUTPUT_DIR", "")

	wd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.Output.Dir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PAGECAP_OUTPUT_DIR", "/tmp/out")
	t.Setenv("PAGECAP_IDLE_QUIET", "2s")
	t.Setenv("PAGECAP_RELOAD_WINDOW", "10s")
	t.Setenv("PAGECAP_API_KEYS", " a , ,b ")
	t.Setenv("PAGECAP_HEADLESS", "false")
	t.Setenv("PAGECAP_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.Output.Dir)
	assert.Equal(t, 2*time.Second, cfg.Capture.IdleQuiet)
	assert.Equal(t, 10*time.Second, cfg.Capture.ReloadWindow)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 8080, cfg.Server.Port, "unparsable values keep the default")
}

func TestLoad_BrowserBinFromChromePath(t *testing.T) {
	t.Setenv("PAGECAP_BROWSER_BIN", "")
	t.Setenv("CHROME_PATH", "/opt/chrome/chrome")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser.Bin)

	t.Setenv("PAGECAP_BROWSER_BIN", "/usr/bin/chromium")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Bin)
}

func TestLoad_InvalidSelector(t *testing.T) {
	t.Setenv("PAGECAP_CONTENT_SELECTOR", "main[")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content selector")
}

func TestLoad_RulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yml := `consent_phrases:
  - "  Zustimmen und weiter "
  - ""
block_patterns:
  - 'tracker\.example'
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("PAGECAP_RULES_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"zustimmen und weiter"}, cfg.Rules.ConsentPhrases)
	assert.Equal(t, []string{`tracker\.example`}, cfg.Rules.BlockPatterns)
	assert.Equal(t, DefaultRules().ExpandPhrases, cfg.Rules.ExpandPhrases, "absent lists keep the defaults")
	assert.Equal(t, DefaultRules().SuppressSubstrings, cfg.Rules.SuppressSubstrings)
}

func TestLoad_RulesFileErrors(t *testing.T) {
	t.Setenv("PAGECAP_RULES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("block_patterns:\n  - '(unclosed'\n"), 0o644))
	t.Setenv("PAGECAP_RULES_FILE", path)
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block pattern")
}

func TestDefaultRules_Valid(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
}
