package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/models"
)

// interceptor collects HLS-looking responses for one page. Callbacks arrive
// on rod's event goroutine while the orchestrator reads snapshots, so all
// state sits behind mu.
type interceptor struct {
	mu       sync.Mutex
	captured []candidate.Candidate
	failed   []models.FailedRequest
	// pending maps in-flight manifest request IDs to their URL so a later
	// LoadingFailed event, which carries no URL, can be reported.
	pending map[string]string

	firstHit  chan struct{}
	firstOnce sync.Once
	now       func() time.Time
}

func newInterceptor() *interceptor {
	return &interceptor{
		pending:  make(map[string]string),
		firstHit: make(chan struct{}),
		now:      time.Now,
	}
}

// attach subscribes to the page's network events. It must run before the
// first navigation. The returned func detaches the listener.
func (i *interceptor) attach(page *rod.Page) func() {
	ctx, cancel := context.WithCancel(context.Background())
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		slog.Debug("network domain enable failed", "error", err)
	}
	wait := page.Context(ctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request != nil {
				i.onRequest(string(e.RequestID), e.Request.URL)
			}
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Response != nil {
				i.onResponse(string(e.RequestID), e.Response.URL, e.Response.Status)
			}
		},
		func(e *proto.NetworkLoadingFailed) {
			i.onFailed(string(e.RequestID), e.ErrorText)
		},
	)
	go wait()
	return cancel
}

func (i *interceptor) onRequest(id, rawURL string) {
	if !candidate.MatchesNetworkMarker(rawURL) {
		return
	}
	i.mu.Lock()
	i.pending[id] = rawURL
	i.mu.Unlock()
}

func (i *interceptor) onResponse(id, rawURL string, status int) {
	if !candidate.MatchesNetworkMarker(rawURL) {
		return
	}
	now := i.now()

	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.pending, id)

	switch {
	case status >= 200 && status < 400:
		i.captured = append(i.captured, candidate.Candidate{
			URL:        rawURL,
			HTTPStatus: status,
			ObservedAt: now,
			Method:     candidate.MethodNetwork,
		})
		i.firstOnce.Do(func() { close(i.firstHit) })
		slog.Debug("captured manifest response", "status", status, "url", truncate(rawURL, 120))
	case status >= 400:
		i.failed = append(i.failed, models.FailedRequest{
			URL:        rawURL,
			HTTPStatus: status,
			Reason:     fmt.Sprintf("HTTP %d", status),
			ObservedAt: now,
		})
	}
}

func (i *interceptor) onFailed(id, reason string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	rawURL, ok := i.pending[id]
	if !ok {
		return
	}
	delete(i.pending, id)
	i.failed = append(i.failed, models.FailedRequest{
		URL:        rawURL,
		Reason:     reason,
		ObservedAt: i.now(),
	})
}

// wait blocks up to maxWait for a capture, then lets settle pass after the
// first hit so sibling playlists can arrive too.
func (i *interceptor) wait(ctx context.Context, maxWait, settle time.Duration) {
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	select {
	case <-i.firstHit:
	case <-deadline.C:
		return
	case <-ctx.Done():
		return
	}

	settleTimer := time.NewTimer(settle)
	defer settleTimer.Stop()
	select {
	case <-settleTimer.C:
	case <-deadline.C:
	case <-ctx.Done():
	}
}

func (i *interceptor) snapshot() []candidate.Candidate {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.captured)
}

func (i *interceptor) failures() []models.FailedRequest {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.failed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
