package scraper

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/streamgrab/config"
	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/models"
)

// Driver starts one isolated browser session per extraction. By default each
// session is its own Chromium process; with a CDP URL configured, sessions
// are incognito contexts of that remote browser instead.
// It is safe for concurrent use.
type Driver struct {
	browserCfg config.BrowserConfig
	extCfg     config.ExtractionConfig
	shapes     *ShapeMemory
	remote     *rod.Browser
}

var _ engine.Browser = (*Driver)(nil)

// NewDriver creates a Driver. When a CDP URL is configured it connects to it
// up front so a bad endpoint fails at startup.
func NewDriver(browserCfg config.BrowserConfig, extCfg config.ExtractionConfig) (*Driver, error) {
	d := &Driver{
		browserCfg: browserCfg,
		extCfg:     extCfg,
		shapes:     NewShapeMemory(extCfg.ShapeMemoryTTL),
	}
	if browserCfg.CDPURL != "" {
		remote := rod.New().ControlURL(browserCfg.CDPURL)
		if err := remote.Connect(); err != nil {
			return nil, models.NewExtractError(
				models.ErrKindBrowser,
				"failed to connect to CDP URL",
				err,
			)
		}
		slog.Info("connected to remote browser", "cdpURL", browserCfg.CDPURL)
		d.remote = remote
	}
	return d, nil
}

// Close stops background work and disconnects from a remote browser. Locally
// launched browsers belong to their sessions.
func (d *Driver) Close() {
	d.shapes.Stop()
	if d.remote != nil {
		// Disconnect closes the WebSocket but does NOT kill the browser process.
		_ = d.remote.Close()
	}
}

// Launch starts a browser session for ch with stealth, identity, request
// blocking and the network interceptor installed. It has not navigated yet.
func (d *Driver) Launch(ctx context.Context, ch models.Channel) (engine.Session, error) {
	s := &session{
		driver:      d,
		channel:     ch,
		identity:    nextIdentity(),
		interceptor: newInterceptor(),
	}

	if d.remote != nil {
		b, err := d.remote.Incognito()
		if err != nil {
			return nil, models.NewExtractError(models.ErrKindBrowser, "failed to open incognito context", err)
		}
		s.browser = b
	} else {
		l := d.newLauncher().Context(ctx)
		controlURL, err := l.Launch()
		if err != nil {
			l.Kill()
			l.Cleanup()
			return nil, models.NewExtractError(models.ErrKindBrowser, "failed to launch browser", err)
		}
		s.launcher = l
		b := rod.New().ControlURL(controlURL)
		if err := b.Connect(); err != nil {
			s.Close()
			return nil, models.NewExtractError(models.ErrKindBrowser, "failed to connect to browser", err)
		}
		s.browser = b
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, models.NewExtractError(models.ErrKindBrowser, "failed to create page", err)
	}
	s.page = page

	d.preparePage(s)

	slog.Debug("browser session ready",
		"channel", ch.Name,
		"userAgent", s.identity.UserAgent,
		"remote", d.remote != nil,
	)
	return s, nil
}

func (d *Driver) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(d.browserCfg.Headless).
		NoSandbox(d.browserCfg.NoSandbox)

	if d.browserCfg.BrowserBin != "" {
		l = l.Bin(d.browserCfg.BrowserBin)
	}
	if d.browserCfg.Proxy != "" {
		l = l.Proxy(d.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("autoplay-policy"), "no-user-gesture-required")
	l.Set(flags.Flag("mute-audio"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// preparePage installs everything that must precede the first navigation.
// Individual failures are logged and tolerated: a session with a partial
// disguise still gets a chance at the page.
func (d *Driver) preparePage(s *session) {
	page := s.page
	id := s.identity

	// ── Stealth injection ────────────────────────────────────────────
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	if _, err := page.EvalOnNewDocument(normalizeJS); err != nil {
		slog.Warn("navigator normalisation failed", "error", err)
	}

	// ── Identity ─────────────────────────────────────────────────────
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      id.UserAgent,
		AcceptLanguage: id.AcceptLanguage,
		Platform:       id.Platform,
	}); err != nil {
		slog.Warn("user agent override failed", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             id.Width,
		Height:            id.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}
	if d.browserCfg.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: d.browserCfg.Timezone}).Call(page); err != nil {
			slog.Warn("timezone override failed", "timezone", d.browserCfg.Timezone, "error", err)
		}
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": id.AcceptLanguage,
		}),
	}).Call(page); err != nil {
		slog.Warn("extra headers failed", "error", err)
	}

	// ── Request blocking ─────────────────────────────────────────────
	s.router = setupHijack(page, d.browserCfg.BlockedResourceTypes)

	// ── Network interceptor, before navigation ───────────────────────
	s.detach = s.interceptor.attach(page)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
