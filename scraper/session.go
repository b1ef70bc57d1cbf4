package scraper

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/models"
)

// readTimeout bounds post-navigation page reads.
const readTimeout = 10 * time.Second

// closeTimeout bounds the polite page close before the process is killed.
const closeTimeout = 3 * time.Second

// alternateShapes are path prefixes tried when the plain channel path lands
// somewhere that no longer mentions the channel.
var alternateShapes = []string{"watch/", "live/"}

// session is one browser context on one channel page.
type session struct {
	driver      *Driver
	channel     models.Channel
	identity    identity
	interceptor *interceptor

	browser  *rod.Browser
	launcher *launcher.Launcher // nil for remote incognito sessions
	page     *rod.Page
	router   *rod.HijackRouter
	detach   func()

	closeOnce sync.Once
}

var _ engine.Session = (*session)(nil)

// Navigate loads the channel page, walking the alternate URL shapes when the
// landing no longer references the channel and nothing was captured.
//
// Lifecycle:
//
//  1. Order paths          – remembered shape first, then registry path, then alternates
//  2. Load                 – bounded navigation, expiry is not fatal
//  3. Settle               – bounded DOM-stable wait, expiry is not fatal
//  4. Read landing         – URL, title, status, body text, HTML
//  5. Remember             – the shape that reached the channel page
func (s *session) Navigate(ctx context.Context) (*engine.Landing, error) {
	w := shapeWalk{
		channel:  s.channel,
		baseURL:  s.driver.extCfg.BaseURL,
		shapes:   s.driver.shapes,
		load:     s.load,
		captured: func() bool { return len(s.interceptor.snapshot()) > 0 },
	}
	return w.run(ctx)
}

// shapeWalk tries each URL shape of a channel in turn.
type shapeWalk struct {
	channel  models.Channel
	baseURL  string
	shapes   *ShapeMemory
	load     func(ctx context.Context, target string) (*engine.Landing, error)
	captured func() bool
}

// run returns the first landing that references the channel or arrived with
// a capture. When no shape gets there it returns the first landing and
// forgets the remembered shape.
func (w shapeWalk) run(ctx context.Context) (*engine.Landing, error) {
	paths := w.shapes.Order(w.channel.Name, w.channel.SitePath)
	slug := strings.ToLower(slugOf(w.channel.SitePath))

	var (
		first   *engine.Landing
		lastErr error
	)
	for i, p := range paths {
		target := w.baseURL + "/" + strings.TrimLeft(p, "/")
		landing, err := w.load(ctx, target)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			slog.Warn("navigation failed, trying next URL shape", "channel", w.channel.Name, "url", target, "error", err)
			continue
		}
		if first == nil {
			first = landing
		}

		onChannel := strings.Contains(strings.ToLower(landing.URL), slug)
		if onChannel || w.captured() {
			if onChannel {
				w.shapes.Set(w.channel.Name, p)
			}
			return landing, nil
		}
		if i < len(paths)-1 {
			slog.Info("landing does not reference the channel, trying next URL shape",
				"channel", w.channel.Name,
				"landed", landing.URL,
			)
		}
	}

	if first != nil {
		// Nothing matched: classify the page the plain path produced.
		w.shapes.Delete(w.channel.Name)
		return first, nil
	}
	return nil, categorizeError(lastErr, "navigation to channel page failed")
}

// load navigates to target and reads the result. Navigation and settle
// timeouts only shorten the wait; the page is read as it stands.
func (s *session) load(ctx context.Context, target string) (*engine.Landing, error) {
	cfg := s.driver.extCfg

	// ── Navigate ─────────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	p := s.page.Context(navCtx)
	err := p.Navigate(target)
	if err == nil {
		err = p.WaitLoad()
	}
	cancel()
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		slog.Warn("navigation timed out, continuing with current page",
			"url", target,
			"timeout", cfg.NavigationTimeout,
		)
	}

	// ── Settle ───────────────────────────────────────────────────────
	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests. A stable DOM is the best available "network quiet".
	settleCtx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	if err := s.page.Context(settleCtx).WaitDOMStable(time.Second, 0); err != nil {
		slog.Debug("page did not settle, proceeding with current DOM", "url", target, "error", err)
	}
	cancel()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readLanding(ctx, target)
}

func (s *session) readLanding(ctx context.Context, requested string) (*engine.Landing, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	p := s.page.Context(ctx)

	landing := &engine.Landing{RequestedURL: requested, URL: requested}
	if res, err := p.Eval(landingJS); err == nil {
		v := res.Value
		if u := v.Get("url").Str(); u != "" {
			landing.URL = u
		}
		landing.Title = v.Get("title").Str()
		landing.Status = v.Get("status").Int()
		landing.BodyText = v.Get("text").Str()
	} else {
		slog.Debug("landing script failed", "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		slog.Debug("reading landing HTML failed", "error", err)
	}
	landing.HTML = html
	if landing.BodyText == "" {
		landing.BodyText = visibleText(html)
	}
	if landing.Title == "" {
		landing.Title = htmlTitle(html)
	}

	slog.Info("page landed",
		"channel", s.channel.Name,
		"url", landing.URL,
		"status", landing.Status,
		"title", landing.Title,
	)
	return landing, nil
}

// TriggerPlayback waits for a player, clears overlays and starts playback.
func (s *session) TriggerPlayback(ctx context.Context) bool {
	found := waitForVideo(ctx, s.page, s.driver.extCfg.VideoWait)
	if !found {
		slog.Warn("no <video> element within wait, page may use a canvas or cross-origin player",
			"channel", s.channel.Name,
		)
	}

	if sel := clickFirstVisible(ctx, s.page, consentSelectors); sel != "" {
		slog.Debug("dismissed overlay", "selector", sel)
	}
	if sel := clickFirstVisible(ctx, s.page, playSelectors); sel != "" {
		slog.Info("clicked play element", "channel", s.channel.Name, "selector", sel)
	}
	if n := forcePlay(ctx, s.page); n > 0 {
		found = true
	}
	return found
}

// WaitForCapture blocks until the interceptor saw a manifest plus settle, or
// until wait passes.
func (s *session) WaitForCapture(ctx context.Context, wait, settle time.Duration) {
	s.interceptor.wait(ctx, wait, settle)
}

// Captured returns the network candidates seen so far.
func (s *session) Captured() []candidate.Candidate {
	return s.interceptor.snapshot()
}

// FailedRequests returns the manifest requests that failed.
func (s *session) FailedRequests() []models.FailedRequest {
	return s.interceptor.failures()
}

// Probe runs the content probes against the live page.
func (s *session) Probe(ctx context.Context, exhaustive bool) []engine.ProbeResult {
	return runProbes(ctx, &rodReader{page: s.page}, exhaustive, time.Now)
}

// Iframes lists iframe sources on the page.
func (s *session) Iframes(ctx context.Context) []string {
	vals, err := (&rodReader{page: s.page}).EvalStrings(ctx, iframesJS)
	if err != nil {
		slog.Debug("listing iframes failed", "error", err)
	}
	return vals
}

// Close tears the session down. It is idempotent and safe to call from the
// watchdog while another method is still running.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			_ = s.page.Timeout(closeTimeout).Close()
		}
		if s.launcher != nil {
			// Locally launched: kill the process and remove its profile.
			s.launcher.Kill()
			s.launcher.Cleanup()
			return
		}
		if s.browser != nil {
			// Remote: dispose of the incognito context only.
			err = s.browser.Close()
		}
	})
	return err
}

// rodReader adapts a rod page to pageReader.
type rodReader struct {
	page *rod.Page
}

func (r *rodReader) HTML(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	return r.page.Context(ctx).HTML()
}

func (r *rodReader) EvalStrings(ctx context.Context, js string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	res, err := r.page.Context(ctx).Eval(js)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, v := range res.Value.Arr() {
		if str := v.Str(); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

// slugOf returns the last segment of a site path.
func slugOf(sitePath string) string {
	return path.Base("/" + strings.Trim(sitePath, "/"))
}

// categorizeError wraps raw errors into typed ExtractErrors so the
// orchestrator can tell timeouts from browser failures.
func categorizeError(err error, msg string) *models.ExtractError {
	switch {
	case err == nil:
		return models.NewExtractError(models.ErrKindBrowser, msg, nil)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrKindNavigationTimeout, msg, err)
	default:
		return models.NewExtractError(models.ErrKindBrowser, msg, err)
	}
}
