package engine

import (
	"context"
	"time"

	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/models"
)

// Browser starts browser sessions bound to a channel page.
type Browser interface {
	// Launch starts a fresh, isolated session with the network interceptor
	// already attached. The session has not navigated yet.
	Launch(ctx context.Context, ch models.Channel) (Session, error)
}

// Session is one browser context driving one channel page.
//
// Close must be idempotent and safe to call concurrently with any other
// method: the watchdog calls it from its own goroutine.
type Session interface {
	// Navigate loads the channel page and waits for it to settle. Load and
	// settle timeouts are not errors; the page is used as it stands.
	Navigate(ctx context.Context) (*Landing, error)

	// TriggerPlayback dismisses overlays and starts playback. It reports
	// whether a video element was ever located.
	TriggerPlayback(ctx context.Context) bool

	// WaitForCapture blocks up to wait for manifest requests, returning
	// early settle after the first one is seen.
	WaitForCapture(ctx context.Context, wait, settle time.Duration)

	// Captured returns a snapshot of the network candidates seen so far.
	Captured() []candidate.Candidate

	// FailedRequests returns manifest requests that failed, for diagnostics.
	FailedRequests() []models.FailedRequest

	// Probe runs the content probes in order. Unless exhaustive is set it
	// stops after the first probe that yields candidates.
	Probe(ctx context.Context, exhaustive bool) []ProbeResult

	// Iframes returns the src of every iframe on the page.
	Iframes(ctx context.Context) []string

	// Close releases the browser context.
	Close() error
}

// Landing describes the page a navigation ended on.
type Landing struct {
	RequestedURL string
	URL          string
	Title        string
	Status       int
	BodyText     string
	HTML         string
}

// ProbeResult is what one content probe found.
type ProbeResult struct {
	Method     candidate.Method
	Candidates []candidate.Candidate
}

// Verifier fetches a manifest URL and reports whether it is a playable playlist.
type Verifier interface {
	Verify(ctx context.Context, manifestURL string) *models.Verification
}

// Notifier is told about every fresh extraction outcome.
type Notifier interface {
	Notify(result *models.ExtractionResult)
}

// Summarizer renders a short readable summary of a page for diagnostics.
type Summarizer interface {
	Summarize(html, pageURL string) *models.PageSummary
}
