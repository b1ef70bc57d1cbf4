package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/use-agent/streamgrab/cache"
	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/config"
	"github.com/use-agent/streamgrab/models"
	"github.com/use-agent/streamgrab/premium"
)

// diagnosticsTimeout bounds the page reads made after a session finished,
// when its own context may already be done.
const diagnosticsTimeout = 5 * time.Second

// ExtractOptions tunes one Extract call.
type ExtractOptions struct {
	// Force bypasses the cache.
	Force bool

	// Verify fetches the selected manifest and attaches the verdict.
	Verify bool
}

// Extractor is the extraction orchestrator. It owns the cache and the
// single-flight gate and drives browser sessions through the extraction
// states. It is safe for concurrent use.
type Extractor struct {
	browser    Browser
	cache      *cache.Cache
	scorer     *candidate.Scorer
	gate       *Gate
	cfg        config.ExtractionConfig
	gateWait   time.Duration
	verifier   Verifier
	notifier   Notifier
	summarizer Summarizer
	now        func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithVerifier enables manifest verification on request.
func WithVerifier(v Verifier) Option { return func(e *Extractor) { e.verifier = v } }

// WithNotifier reports every fresh outcome to n.
func WithNotifier(n Notifier) Option { return func(e *Extractor) { e.notifier = n } }

// WithSummarizer attaches a page summary to diagnostic reports.
func WithSummarizer(s Summarizer) Option { return func(e *Extractor) { e.summarizer = s } }

// WithClock overrides the time source used for timestamps and the gate.
func WithClock(now func() time.Time) Option { return func(e *Extractor) { e.now = now } }

// NewExtractor wires an orchestrator around a browser and a cache.
func NewExtractor(
	browser Browser,
	c *cache.Cache,
	scorer *candidate.Scorer,
	extCfg config.ExtractionConfig,
	gateCfg config.GateConfig,
	opts ...Option,
) *Extractor {
	e := &Extractor{
		browser:  browser,
		cache:    c,
		scorer:   scorer,
		cfg:      extCfg,
		gateWait: gateCfg.AcquireTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	e.gate = NewGate(staleBound(gateCfg.StaleAfter, extCfg), e.now)
	return e
}

// staleBound keeps the gate's staleness bound above the longest stretch a
// healthy holder goes without touching it: one watchdog-bounded session plus
// the verification and diagnostics that follow it.
func staleBound(staleAfter time.Duration, cfg config.ExtractionConfig) time.Duration {
	if staleAfter <= 0 || cfg.WatchdogTimeout <= 0 {
		return staleAfter
	}
	floor := cfg.WatchdogTimeout + cfg.VerifyTimeout + diagnosticsTimeout
	if staleAfter > floor {
		return staleAfter
	}
	slog.Warn("gate staleness bound below session budget, raising it",
		"staleAfter", staleAfter,
		"watchdog", cfg.WatchdogTimeout,
		"raisedTo", floor+time.Second,
	)
	return floor + time.Second
}

// sessionOutcome is everything one browser session observed.
type sessionOutcome struct {
	landing    *Landing
	verdict    premium.Verdict
	notFound   bool
	videoFound bool
	selection  candidate.Selection
	probes     []ProbeResult
	network    []candidate.Candidate
	failed     []models.FailedRequest
	iframes    []string
}

// Extract resolves a fresh stream URL for ch. It never returns nil; failures
// are reported inside the result.
func (e *Extractor) Extract(ctx context.Context, ch models.Channel, opts ExtractOptions) *models.ExtractionResult {
	start := e.now()

	if !opts.Force {
		if res, ok := e.fromCache(ctx, ch, start, opts.Verify); ok {
			return res
		}
	}

	tr := newTrace(ch.Name)
	tr.enter(StateGateWait)
	token, err := e.gate.Acquire(ctx, e.gateWait)
	if err != nil {
		tr.enter(StateFailed)
		return e.failure(ch, start, 0, gateError(err), nil)
	}
	defer e.gate.Release(token)

	// Once admitted the attempt runs to completion or to the watchdog, so a
	// caller that hangs up still leaves a fresh URL in the cache.
	ctx = context.WithoutCancel(ctx)

	// Another caller may have filled the cache while this one waited.
	if !opts.Force {
		if res, ok := e.fromCache(ctx, ch, start, opts.Verify); ok {
			return res
		}
	}

	maxAttempts := 1 + max(e.cfg.MaxRetries, 0)
	var (
		out     *sessionOutcome
		attempt int
	)
	for attempt = 1; ; attempt++ {
		out, err = e.runSession(ctx, ch, token, tr, false)
		if err == nil {
			break
		}
		kind := kindOf(err)
		if !kind.Retryable() || attempt >= maxAttempts {
			tr.enter(StateFailed)
			slog.Warn("extraction failed",
				"channel", ch.Name,
				"kind", kind,
				"attempts", attempt,
				"error", err,
			)
			res := e.failure(ch, start, attempt, err, out)
			e.notify(res)
			return res
		}
		slog.Info("extraction retrying with a fresh session",
			"channel", ch.Name,
			"attempt", attempt,
			"kind", kind,
		)
	}

	tr.enter(StateSucceeded)
	sel := out.selection
	entry := e.cache.Set(ch.Name, sel.Best.URL, sel.AlternateURLs())

	res := &models.ExtractionResult{
		Success:           true,
		Channel:           ch.Name,
		StreamURL:         entry.URL,
		Alternates:        entry.Alternates,
		Score:             sel.Best.Score,
		CapturedCount:     sel.Unique,
		VideoElementFound: out.videoFound,
		Attempts:          attempt,
		Source:            "fresh",
	}
	if opts.Verify && e.verifier != nil {
		res.Verification = e.verifier.Verify(ctx, res.StreamURL)
	}
	res.ElapsedSeconds = e.elapsed(start)

	slog.Info("extraction succeeded",
		"channel", ch.Name,
		"method", sel.Best.Method,
		"score", sel.Best.Score,
		"unique", sel.Unique,
		"attempts", attempt,
		"elapsed", res.ElapsedSeconds,
	)
	e.notify(res)
	return res
}

// DebugProbe runs one diagnostic session for ch: no extended capture wait,
// every content probe, no premium short-circuit, no cache write.
func (e *Extractor) DebugProbe(ctx context.Context, ch models.Channel) *models.DiagnosticReport {
	start := e.now()
	tr := newTrace(ch.Name)
	report := &models.DiagnosticReport{
		Channel:         ch.Name,
		NetworkCaptures: []models.CandidateInfo{},
		FailedRequests:  []models.FailedRequest{},
		ProbeHits:       map[string][]models.CandidateInfo{},
	}

	tr.enter(StateGateWait)
	token, err := e.gate.Acquire(ctx, e.gateWait)
	if err != nil {
		tr.enter(StateFailed)
		e.fillReportError(report, gateError(err))
		report.States = tr.states
		report.ElapsedSeconds = e.elapsed(start)
		return report
	}
	defer e.gate.Release(token)
	ctx = context.WithoutCancel(ctx)

	out, err := e.runSession(ctx, ch, token, tr, true)
	if err != nil {
		tr.enter(StateFailed)
		e.fillReportError(report, err)
	} else {
		tr.enter(StateSucceeded)
	}

	if out != nil {
		e.fillReport(ctx, report, out)
	}
	report.States = tr.states
	report.ElapsedSeconds = e.elapsed(start)
	return report
}

// runSession drives one browser session under a watchdog.
func (e *Extractor) runSession(ctx context.Context, ch models.Channel, token uint64, tr *trace, diagnostic bool) (*sessionOutcome, error) {
	// Each session restarts the staleness clock, so a retry is not mistaken
	// for a stuck holder.
	if !e.gate.Touch(token) {
		return nil, models.NewExtractError(models.ErrKindServerBusy,
			"extraction gate was released before the session started", nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tr.enter(StateNavigating)
	sess, err := e.browser.Launch(ctx, ch)
	if err != nil {
		return nil, categorizeError(err, models.ErrKindBrowser, "failed to start browser session")
	}

	var closeOnce sync.Once
	closeSession := func() {
		closeOnce.Do(func() {
			if err := sess.Close(); err != nil {
				slog.Debug("session close failed", "channel", ch.Name, "error", err)
			}
		})
	}
	defer closeSession()

	wd := startWatchdog(e.cfg.WatchdogTimeout, func() {
		slog.Error("watchdog fired, aborting browser session",
			"channel", ch.Name,
			"timeout", e.cfg.WatchdogTimeout,
		)
		cancel()
		closeSession()
		e.gate.Release(token)
	})
	out, err := e.safeDrive(ctx, sess, ch, tr, diagnostic)

	// A timer that went off after the drive returned has still closed the
	// session and released the gate.
	if !wd.Stop() || wd.Fired() {
		return &sessionOutcome{}, models.NewExtractError(
			models.ErrKindWatchdogTimeout,
			fmt.Sprintf("browser session exceeded %s", e.cfg.WatchdogTimeout),
			err,
		)
	}

	if diagnostic {
		dctx, dcancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
		out.network = sess.Captured()
		out.failed = sess.FailedRequests()
		out.iframes = sess.Iframes(dctx)
		dcancel()
	}
	return out, err
}

// safeDrive recovers a panic inside the session into a browser error.
func (e *Extractor) safeDrive(ctx context.Context, sess Session, ch models.Channel, tr *trace, diagnostic bool) (out *sessionOutcome, err error) {
	out = &sessionOutcome{}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during extraction",
				"channel", ch.Name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = models.NewExtractError(models.ErrKindBrowser, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	err = e.drive(ctx, sess, out, tr, diagnostic)
	return out, err
}

// drive walks one session from navigation to selection, filling out as it
// goes so a failed attempt still carries what it saw.
func (e *Extractor) drive(ctx context.Context, sess Session, out *sessionOutcome, tr *trace, diagnostic bool) error {
	landing, err := sess.Navigate(ctx)
	if err != nil {
		return categorizeError(err, models.ErrKindBrowser, "navigation failed")
	}
	out.landing = landing

	// ── Classify ─────────────────────────────────────────────────────
	tr.enter(StateClassifying, "url", landing.URL, "status", landing.Status)
	out.verdict = premium.Classify(landing.URL, landing.BodyText)
	out.notFound = premium.IsNotFound(landing.Status, landing.Title, premium.Snapshot(landing.BodyText))

	var blocked error
	switch {
	case out.verdict.IsGated:
		tr.enter(StatePremiumBlocked, "reason", out.verdict.Reason)
		blocked = models.NewExtractError(models.ErrKindPremiumGated,
			"premium wall detected: "+out.verdict.Reason, nil)
	case out.notFound:
		blocked = models.NewExtractError(models.ErrKindChannelNotFound,
			fmt.Sprintf("site returned a not-found page for %s", landing.URL), nil)
	}
	if blocked != nil && !diagnostic {
		return blocked
	}

	// ── Playback ─────────────────────────────────────────────────────
	tr.enter(StateMediaWait)
	out.videoFound = sess.TriggerPlayback(ctx)

	// ── Capture ──────────────────────────────────────────────────────
	tr.enter(StateCapturing, "videoFound", out.videoFound)
	if !diagnostic {
		sess.WaitForCapture(ctx, e.cfg.CaptureWait, e.cfg.CaptureSettle)
	}
	cands := sess.Captured()

	// ── Probe ────────────────────────────────────────────────────────
	if len(cands) == 0 || diagnostic {
		tr.enter(StateProbing)
		out.probes = sess.Probe(ctx, diagnostic)
		for _, p := range out.probes {
			cands = append(cands, p.Candidates...)
		}
		if len(cands) == 0 && !diagnostic {
			sleepCtx(ctx, e.cfg.ProbeFinalWait)
			cands = sess.Captured()
		}
	}

	// ── Select ───────────────────────────────────────────────────────
	tr.enter(StateSelecting, "candidates", len(cands))
	sel, ok := e.scorer.Select(cands)
	if !ok {
		if blocked != nil {
			return blocked
		}
		if err := ctx.Err(); err != nil {
			return categorizeError(err, models.ErrKindNoCandidates, "no stream candidates before the session ended")
		}
		return models.NewExtractError(models.ErrKindNoCandidates,
			"no stream candidates captured", nil)
	}
	out.selection = sel
	return nil
}

// CacheGet returns the unexpired cache entry for a channel.
func (e *Extractor) CacheGet(name string) (models.CacheEntry, bool) {
	return e.cache.Get(name)
}

// CacheSet stores a URL for a channel, as if it had just been extracted.
func (e *Extractor) CacheSet(name, url string, alternates []string) models.CacheEntry {
	return e.cache.Set(name, url, alternates)
}

// CacheClear drops the entry for one channel.
func (e *Extractor) CacheClear(name string) bool {
	return e.cache.Delete(name)
}

// CacheClearAll drops every entry and returns how many there were.
func (e *Extractor) CacheClearAll() int {
	return e.cache.Clear()
}

// CacheEntries lists every unexpired entry.
func (e *Extractor) CacheEntries() []models.CacheEntry {
	return e.cache.Entries()
}

// ResetGate frees the concurrency gate regardless of its holder.
func (e *Extractor) ResetGate() {
	e.gate.Reset()
}

// Stats reports the gate state and cache size.
func (e *Extractor) Stats() (models.GateStats, int) {
	return e.gate.Stats(), e.cache.Len()
}

func (e *Extractor) fromCache(ctx context.Context, ch models.Channel, start time.Time, verify bool) (*models.ExtractionResult, bool) {
	entry, ok := e.cache.Get(ch.Name)
	if !ok {
		return nil, false
	}
	age := e.now().Sub(entry.InsertedAt)
	slog.Info("serving stream from cache", "channel", ch.Name, "age", age)

	res := &models.ExtractionResult{
		Success:       true,
		Channel:       ch.Name,
		StreamURL:     entry.URL,
		Alternates:    entry.Alternates,
		CapturedCount: 1 + len(entry.Alternates),
		Source:        "cache",
		Note:          fmt.Sprintf("cached %ds ago; pass force=1 for a fresh extraction", int(age.Seconds())),
	}
	if verify && e.verifier != nil {
		res.Verification = e.verifier.Verify(ctx, res.StreamURL)
	}
	res.ElapsedSeconds = e.elapsed(start)
	return res, true
}

func (e *Extractor) failure(ch models.Channel, start time.Time, attempts int, err error, out *sessionOutcome) *models.ExtractionResult {
	kind := kindOf(err)
	res := &models.ExtractionResult{
		Success:   false,
		Channel:   ch.Name,
		Attempts:  attempts,
		Source:    "fresh",
		ErrorKind: kind,
		Error:     err.Error(),
		Hint:      kind.Hint(),
	}
	if out != nil {
		res.VideoElementFound = out.videoFound
		if kind == models.ErrKindPremiumGated && out.landing != nil {
			res.DetectedURL = out.landing.URL
		}
	}
	res.ElapsedSeconds = e.elapsed(start)
	return res
}

func (e *Extractor) fillReportError(r *models.DiagnosticReport, err error) {
	kind := kindOf(err)
	r.ErrorKind = kind
	r.Error = err.Error()
	r.Hint = kind.Hint()
}

func (e *Extractor) fillReport(ctx context.Context, r *models.DiagnosticReport, out *sessionOutcome) {
	if l := out.landing; l != nil {
		r.RequestedURL = l.RequestedURL
		r.LandedURL = l.URL
		r.Title = l.Title
		r.HTTPStatus = l.Status
		if e.summarizer != nil && l.HTML != "" {
			r.Page = e.summarizer.Summarize(l.HTML, l.URL)
		}
	}
	r.Premium = models.PremiumInfo{IsGated: out.verdict.IsGated, Reason: out.verdict.Reason}
	r.VideoElementFound = out.videoFound
	r.Iframes = out.iframes

	for _, c := range out.network {
		r.NetworkCaptures = append(r.NetworkCaptures, c.Info(e.scorer.Score(c.URL)))
	}
	if out.failed != nil {
		r.FailedRequests = out.failed
	}
	for _, p := range out.probes {
		hits := make([]models.CandidateInfo, 0, len(p.Candidates))
		for _, c := range p.Candidates {
			hits = append(hits, c.Info(e.scorer.Score(c.URL)))
		}
		r.ProbeHits[string(p.Method)] = hits
	}

	if best := out.selection.Best; best.URL != "" {
		info := best.Info(best.Score)
		r.Best = &info
		if e.verifier != nil {
			r.Verification = e.verifier.Verify(ctx, best.URL)
		}
	}
}

func (e *Extractor) notify(res *models.ExtractionResult) {
	if e.notifier != nil {
		e.notifier.Notify(res)
	}
}

func (e *Extractor) elapsed(start time.Time) float64 {
	return math.Round(e.now().Sub(start).Seconds()*100) / 100
}

// gateError maps a failed gate acquisition to an extraction error.
func gateError(err error) error {
	if errors.Is(err, ErrGateBusy) {
		return models.NewExtractError(models.ErrKindServerBusy,
			"another extraction is in progress", err)
	}
	return categorizeError(err, models.ErrKindServerBusy, "gave up waiting for the extraction gate")
}

// categorizeError wraps raw errors into typed ExtractErrors. Typed errors pass
// through; context deadlines become navigation timeouts.
func categorizeError(err error, fallback models.ErrorKind, msg string) error {
	var ee *models.ExtractError
	switch {
	case errors.As(err, &ee):
		return ee
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrKindNavigationTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(fallback, "request canceled", err)
	default:
		return models.NewExtractError(fallback, msg, err)
	}
}

// kindOf extracts the failure kind from err.
func kindOf(err error) models.ErrorKind {
	var ee *models.ExtractError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return models.ErrKindBrowser
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
