package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	Capture   CaptureConfig
	Output    OutputConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Webhook   WebhookConfig
	Rules     Rules
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Bin overrides the Chromium binary path. Empty lets the launcher
	// resolve (and if needed download) a browser.
	Bin string // env: PAGECAP_BROWSER_BIN, then CHROME_PATH

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in containers and CI runners).
	NoSandbox bool // default: true

	// Stealth injects anti-automation-detection evasions into every page.
	Stealth bool // default: false

	// ViewportWidth and ViewportHeight fix the page viewport.
	ViewportWidth  int // default: 1366
	ViewportHeight int // default: 900
}

// CaptureConfig holds every timing and heuristic constant of the pipeline.
type CaptureConfig struct {
	// NavigationTimeout bounds the initial page load. Exceeding it is fatal.
	NavigationTimeout time.Duration // default: 120s

	// ContentSelector is waited for after load (best-effort).
	ContentSelector string // default: "main, article, [role=main]"

	// ContentTimeout bounds the content-root wait.
	ContentTimeout time.Duration // default: 60s

	// ReloadWindow is how long top-frame navigations are watched after
	// the first cleanup pass. Reloads later than this are missed.
	ReloadWindow time.Duration // default: 4s

	// IdleQuiet is the mutation-free period required before export.
	IdleQuiet time.Duration // default: 1.2s

	// IdlePoll is the polling interval of the idle wait.
	IdlePoll time.Duration // default: 100ms

	// IdleTimeout bounds the idle wait before export.
	IdleTimeout time.Duration // default: 30s

	// ReloadIdleQuiet and ReloadIdleTimeout apply to the wait after a reload.
	ReloadIdleQuiet   time.Duration // default: 1.5s
	ReloadIdleTimeout time.Duration // default: 45s

	// ScrollStep, ScrollPause and ScrollSettle drive the lazy-load pass.
	ScrollStep   int           // default: 200 (px)
	ScrollPause  time.Duration // default: 120ms
	ScrollSettle time.Duration // default: 300ms

	// ExpandTimeout bounds the in-page expansion and lazy-load scripts.
	ExpandTimeout time.Duration // default: 60s

	// ClickTimeout bounds a single consent-button click.
	ClickTimeout time.Duration // default: 3s

	// NormalizeTimeout bounds one whole cleanup pass across all frames.
	NormalizeTimeout time.Duration // default: 30s

	// ImageQuality is the quality of lossy encodings (jpeg, webp).
	ImageQuality int // default: 85
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	// Dir is the artifact directory. Default: $GITHUB_WORKSPACE, else cwd.
	Dir string
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the artifact cache of the HTTP surface.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached artifacts.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls job status delivery.
type WebhookConfig struct {
	// URL receives capture.completed / capture.failed events. Empty disables delivery.
	URL string

	// Secret signs the payload with HMAC-SHA256 when non-empty.
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
// If PAGECAP_RULES_FILE is set, the heuristic tables are read from it.
func Load() (*Config, error) {
	cfg := &Config{
		Browser: BrowserConfig{
			Bin:            envOr("PAGECAP_BROWSER_BIN", os.Getenv("CHROME_PATH")),
			Headless:       envBoolOr("PAGECAP_HEADLESS", true),
			NoSandbox:      envBoolOr("PAGECAP_NO_SANDBOX", true),
			Stealth:        envBoolOr("PAGECAP_STEALTH", false),
			ViewportWidth:  envIntOr("PAGECAP_VIEWPORT_WIDTH", 1366),
			ViewportHeight: envIntOr("PAGECAP_VIEWPORT_HEIGHT", 900),
		},
		Capture: CaptureConfig{
			NavigationTimeout: envDurationOr("PAGECAP_NAV_TIMEOUT", 120*time.Second),
			ContentSelector:   envOr("PAGECAP_CONTENT_SELECTOR", "main, article, [role=main]"),
			ContentTimeout:    envDurationOr("PAGECAP_CONTENT_TIMEOUT", 60*time.Second),
			ReloadWindow:      envDurationOr("PAGECAP_RELOAD_WINDOW", 4*time.Second),
			IdleQuiet:         envDurationOr("PAGECAP_IDLE_QUIET", 1200*time.Millisecond),
			IdlePoll:          envDurationOr("PAGECAP_IDLE_POLL", 100*time.Millisecond),
			IdleTimeout:       envDurationOr("PAGECAP_IDLE_TIMEOUT", 30*time.Second),
			ReloadIdleQuiet:   envDurationOr("PAGECAP_RELOAD_IDLE_QUIET", 1500*time.Millisecond),
			ReloadIdleTimeout: envDurationOr("PAGECAP_RELOAD_IDLE_TIMEOUT", 45*time.Second),
			ScrollStep:        envIntOr("PAGECAP_SCROLL_STEP", 200),
			ScrollPause:       envDurationOr("PAGECAP_SCROLL_PAUSE", 120*time.Millisecond),
			ScrollSettle:      envDurationOr("PAGECAP_SCROLL_SETTLE", 300*time.Millisecond),
			ExpandTimeout:     envDurationOr("PAGECAP_EXPAND_TIMEOUT", 60*time.Second),
			ClickTimeout:      envDurationOr("PAGECAP_CLICK_TIMEOUT", 3*time.Second),
			NormalizeTimeout:  envDurationOr("PAGECAP_NORMALIZE_TIMEOUT", 30*time.Second),
			ImageQuality:      envIntOr("PAGECAP_IMAGE_QUALITY", 85),
		},
		Output: OutputConfig{
			Dir: envOr("PAGECAP_OUTPUT_DIR", os.Getenv("GITHUB_WORKSPACE")),
		},
		Server: ServerConfig{
			Host: envOr("PAGECAP_HOST", "0.0.0.0"),
			Port: envIntOr("PAGECAP_PORT", 8080),
			Mode: envOr("PAGECAP_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGECAP_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGECAP_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGECAP_RATE_RPS", 1.0),
			Burst:             envIntOr("PAGECAP_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGECAP_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PAGECAP_LOG_LEVEL", "info"),
			Format: envOr("PAGECAP_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PAGECAP_WEBHOOK_URL"),
			Secret: os.Getenv("PAGECAP_WEBHOOK_SECRET"),
		},
		Rules: DefaultRules(),
	}

	if cfg.Output.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("config: resolve working directory: %w", err)
		}
		cfg.Output.Dir = wd
	}

	if path := os.Getenv("PAGECAP_RULES_FILE"); path != "" {
		if err := cfg.LoadRulesFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRulesFile merges the heuristic tables from a YAML file into cfg.Rules.
func (c *Config) LoadRulesFile(path string) error {
	rules, err := LoadRules(path)
	if err != nil {
		return fmt.Errorf("config: rules file %s: %w", path, err)
	}
	c.Rules = c.Rules.Merge(rules)
	return nil
}

// Validate checks values that would otherwise fail deep inside a job.
func (c *Config) Validate() error {
	if c.Capture.ContentSelector != "" {
		if _, err := cascadia.ParseGroup(c.Capture.ContentSelector); err != nil {
			return fmt.Errorf("config: invalid content selector %q: %w", c.Capture.ContentSelector, err)
		}
	}
	if c.Capture.ScrollStep <= 0 {
		return fmt.Errorf("config: scroll step must be positive, got %d", c.Capture.ScrollStep)
	}
	if c.Capture.ImageQuality < 0 || c.Capture.ImageQuality > 100 {
		return fmt.Errorf("config: image quality must be in [0,100], got %d", c.Capture.ImageQuality)
	}
	if c.Capture.IdlePoll <= 0 {
		return fmt.Errorf("config: idle poll interval must be positive, got %s", c.Capture.IdlePoll)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("config: invalid viewport %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if err := c.Rules.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
