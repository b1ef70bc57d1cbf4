package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// actionTimeout is the per-action deadline.
const actionTimeout = 5 * time.Second

// videoPollInterval is how often waitForVideo re-checks the DOM.
const videoPollInterval = 250 * time.Millisecond

// consentSelectors dismiss cookie banners and interstitials that sit on top
// of the player, most specific first.
var consentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"button[aria-label='Accept']",
	"button[aria-label='Close']",
	".modal .close",
	".popup-close",
	"[class*='consent'] button",
	"[class*='cookie'] button",
	".close-btn",
}

// playSelectors start playback, most specific first. The bare video element
// is last: clicking it sometimes starts playback on custom players.
var playSelectors = []string{
	"button.vjs-big-play-button",
	".play-button",
	".vjs-play-control",
	"button[aria-label='Play']",
	".jw-icon-playback",
	"video",
}

// waitForVideo polls until a <video> exists (one iframe level included) or
// maxWait passes.
func waitForVideo(ctx context.Context, page *rod.Page, maxWait time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	p := page.Context(ctx)

	ticker := time.NewTicker(videoPollInterval)
	defer ticker.Stop()
	for {
		if res, err := p.Eval(hasVideoJS); err == nil && res.Value.Bool() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// clickFirstVisible clicks the first visible element matching one of
// selectors and returns the selector it clicked, or "".
func clickFirstVisible(ctx context.Context, page *rod.Page, selectors []string) string {
	for _, sel := range selectors {
		if ctx.Err() != nil {
			return ""
		}
		actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
		clicked := tryClick(page.Context(actionCtx), sel)
		cancel()
		if clicked {
			return sel
		}
	}
	return ""
}

func tryClick(p *rod.Page, sel string) bool {
	has, el, err := p.Has(sel)
	if err != nil || !has {
		return false
	}
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		slog.Debug("click failed", "selector", sel, "error", err)
		return false
	}
	return true
}

// forcePlay scrolls the player into view and plays every video muted. It
// returns how many video elements it found.
func forcePlay(ctx context.Context, page *rod.Page) int {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()
	p := page.Context(actionCtx)

	if _, err := p.Eval(scrollJS); err != nil {
		slog.Debug("scroll failed", "error", err)
	}
	res, err := p.Eval(forcePlayJS)
	if err != nil {
		slog.Debug("force play failed", "error", err)
		return 0
	}
	return res.Value.Int()
}
