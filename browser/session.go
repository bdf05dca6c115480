// Package browser owns the browser process and the single page of a job.
package browser

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/pagecap/config"
	"github.com/use-agent/pagecap/export"
	"github.com/use-agent/pagecap/models"
)

// Manager launches one browser per job with a fixed configuration.
type Manager struct {
	cfg config.BrowserConfig
}

// NewManager returns a Manager.
func NewManager(cfg config.BrowserConfig) *Manager {
	return &Manager{cfg: cfg}
}

// LaunchArgs returns the Chromium flags a session is started with.
func (m *Manager) LaunchArgs(scratchDir string) []string {
	return m.launcher(scratchDir).FormatArgs()
}

func (m *Manager) launcher(scratchDir string) *launcher.Launcher {
	l := launcher.New().
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox).
		Leakless(true)

	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	if scratchDir != "" {
		l = l.UserDataDir(filepath.Join(scratchDir, "profile"))
	}

	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("hide-scrollbars"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("disable-extensions"))
	if m.cfg.Stealth {
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
	}
	return l
}

// Acquire spawns a browser whose profile lives under scratchDir and opens
// the job's page with the configured viewport. On failure every partially
// created resource is released and a BROWSER_LAUNCH_FAILED error returned.
func (m *Manager) Acquire(ctx context.Context, scratchDir string) (*Session, error) {
	l := m.launcher(scratchDir).Context(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, models.NewCaptureError(models.ErrCodeBrowserLaunch, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "pid", l.PID())

	s := &Session{launcher: l}
	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.Release()
		return nil, models.NewCaptureError(models.ErrCodeBrowserLaunch, "failed to connect to browser", err)
	}

	if m.cfg.Stealth {
		s.page, err = stealth.Page(s.browser)
	} else {
		s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		s.Release()
		return nil, models.NewCaptureError(models.ErrCodeBrowserLaunch, "failed to open page", err)
	}

	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.Release()
		return nil, models.NewCaptureError(models.ErrCodeBrowserLaunch, "failed to set viewport", err)
	}
	return s, nil
}

// Session is one browser process and its single page. It implements
// export.Source.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var _ export.Source = (*Session)(nil)

// Page returns the job's page.
func (s *Session) Page() *rod.Page { return s.page }

// Release closes the page and the browser and kills the process. It is
// safe to call more than once and never fails; errors are only logged.
func (s *Session) Release() {
	if s == nil {
		return
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			slog.Debug("release: page close failed", "error", err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Debug("release: browser close failed", "error", err)
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
	slog.Debug("browser released")
}

// Screenshot implements export.Source.
func (s *Session) Screenshot(ctx context.Context, enc export.Encoding, quality int) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{}
	switch enc {
	case export.EncodingJPEG:
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		req.Quality = gson.Int(quality)
	case export.EncodingWebP:
		req.Format = proto.PageCaptureScreenshotFormatWebp
		req.Quality = gson.Int(quality)
	default:
		req.Format = proto.PageCaptureScreenshotFormatPng
	}
	return s.page.Context(ctx).Screenshot(true, req)
}

// PDF implements export.Source.
func (s *Session) PDF(ctx context.Context) ([]byte, error) {
	r, err := s.page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// HTML implements export.Source.
func (s *Session) HTML(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => "<!doctype html>\n" + document.documentElement.outerHTML`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// MHTML implements export.Source.
func (s *Session) MHTML(ctx context.Context) (string, error) {
	res, err := proto.PageCaptureSnapshot{
		Format: proto.PageCaptureSnapshotFormatMhtml,
	}.Call(s.page.Context(ctx))
	if err != nil {
		return "", err
	}
	return res.Data, nil
}

// Origin implements export.Source.
func (s *Session) Origin(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(`() => location.origin`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}
