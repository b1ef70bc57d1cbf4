package scraper

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/streamgrab/engine"
	"github.com/use-agent/streamgrab/models"
)

func TestInterceptor_Responses(t *testing.T) {
	i := newInterceptor()
	i.now = fixedNow

	i.onResponse("1", "https://cdn/live/playlist.m3u8?wmsAuthSign=a", 200)
	i.onResponse("2", "https://cdn/live/redirect.m3u8", 302)
	i.onResponse("3", "https://cdn/live/denied.m3u8", 403)
	i.onResponse("4", "https://cdn/app.js", 200)
	i.onResponse("5", "https://cdn/live/weird.m3u8", 101)

	got := i.snapshot()
	if len(got) != 2 {
		t.Fatalf("captured %d, want 2 (200 and 302)", len(got))
	}
	if got[0].HTTPStatus != 200 || got[1].HTTPStatus != 302 {
		t.Errorf("statuses = %d, %d", got[0].HTTPStatus, got[1].HTTPStatus)
	}
	if !got[0].ObservedAt.Equal(fixedNow()) {
		t.Errorf("ObservedAt = %v", got[0].ObservedAt)
	}

	failed := i.failures()
	if len(failed) != 1 || failed[0].HTTPStatus != 403 {
		t.Errorf("failures = %+v, want the 403", failed)
	}
}

func TestInterceptor_LoadingFailedResolvesURL(t *testing.T) {
	i := newInterceptor()
	i.onRequest("7", "https://cdn/live/chunklist.m3u8")
	i.onRequest("8", "https://cdn/logo.png")
	i.onFailed("7", "net::ERR_CONNECTION_RESET")
	i.onFailed("8", "net::ERR_BLOCKED_BY_CLIENT")
	i.onFailed("9", "net::ERR_ABORTED")

	failed := i.failures()
	if len(failed) != 1 {
		t.Fatalf("failures = %+v, want only the manifest", failed)
	}
	if failed[0].URL != "https://cdn/live/chunklist.m3u8" || failed[0].Reason != "net::ERR_CONNECTION_RESET" {
		t.Errorf("failure = %+v", failed[0])
	}

	// A response for a pending request clears it.
	i.onRequest("10", "https://cdn/live/index.m3u8")
	i.onResponse("10", "https://cdn/live/index.m3u8", 200)
	i.onFailed("10", "late")
	if len(i.failures()) != 1 {
		t.Error("completed request reported as failed")
	}
}

func TestInterceptor_WaitEndsAfterSettle(t *testing.T) {
	i := newInterceptor()
	go func() {
		time.Sleep(10 * time.Millisecond)
		i.onResponse("1", "https://cdn/playlist.m3u8", 200)
	}()

	start := time.Now()
	i.wait(context.Background(), 5*time.Second, 20*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("wait took %v, want early return after first hit", elapsed)
	}
}

func TestInterceptor_WaitTimesOut(t *testing.T) {
	i := newInterceptor()
	start := time.Now()
	i.wait(context.Background(), 30*time.Millisecond, time.Hour)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("wait took %v without captures", elapsed)
	}
}

func TestShouldBlock(t *testing.T) {
	blocked := map[proto.NetworkResourceType]struct{}{
		proto.NetworkResourceTypeImage: {},
		proto.NetworkResourceTypeMedia: {},
	}
	tests := []struct {
		name string
		url  string
		rt   proto.NetworkResourceType
		want bool
	}{
		{"image", "https://site/logo.png", proto.NetworkResourceTypeImage, true},
		{"script passes", "https://site/app.js", proto.NetworkResourceTypeScript, false},
		{"manifest as media passes", "https://cdn/live/playlist.m3u8?wmsAuthSign=a", proto.NetworkResourceTypeMedia, false},
		{"segment as media passes", "https://cdn/live/seg_001.ts", proto.NetworkResourceTypeMedia, false},
		{"ad host always blocked", "https://pagead2.googlesyndication.com/x.js", proto.NetworkResourceTypeScript, true},
		{"ad manifest blocked", "https://imasdk.googleapis.com/preroll/master.m3u8", proto.NetworkResourceTypeXHR, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldBlock(tt.url, tt.rt, blocked); got != tt.want {
				t.Errorf("shouldBlock = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleTextAndTitle(t *testing.T) {
	doc := `<html><head><title> ARY News Live </title><style>body{}</style></head>
		<body><h1>Please login to continue</h1><script>var a = "hidden";</script><p>to watch</p></body></html>`

	if got := htmlTitle(doc); got != "ARY News Live" {
		t.Errorf("htmlTitle = %q", got)
	}
	if got := visibleText(doc); got != "Please login to continue to watch" {
		t.Errorf("visibleText = %q", got)
	}
}

func TestShapeMemory_Order(t *testing.T) {
	sm := NewShapeMemory(time.Hour)
	defer sm.Stop()

	if got := sm.Order("ary-news", "ary-news"); !slices.Equal(got, []string{"ary-news", "watch/ary-news", "live/ary-news"}) {
		t.Errorf("default order = %v", got)
	}

	sm.Set("ary-news", "live/ary-news")
	if got := sm.Order("ary-news", "ary-news"); !slices.Equal(got, []string{"live/ary-news", "ary-news", "watch/ary-news"}) {
		t.Errorf("remembered order = %v", got)
	}
}

func TestShapeMemory_Expiry(t *testing.T) {
	sm := NewShapeMemory(time.Minute)
	defer sm.Stop()
	now := fixedNow()
	sm.now = func() time.Time { return now }

	sm.Set("geo", "watch/geo")
	if sm.Get("geo") != "watch/geo" {
		t.Fatal("entry missing")
	}
	now = now.Add(2 * time.Minute)
	if sm.Get("geo") != "" {
		t.Error("expired entry returned")
	}
}

func TestNextIdentity_RoundRobin(t *testing.T) {
	first := nextIdentity()
	seen := map[string]bool{first.UserAgent: true}
	for range len(identities) - 1 {
		seen[nextIdentity().UserAgent] = true
	}
	if len(seen) != len(identities) {
		t.Errorf("saw %d identities in one cycle, want %d", len(seen), len(identities))
	}
	if again := nextIdentity(); again.UserAgent != first.UserAgent {
		t.Error("rotation did not wrap around")
	}
}

func TestSlugOf(t *testing.T) {
	tests := map[string]string{
		"ary-news":        "ary-news",
		"/live/ary-news/": "ary-news",
		"watch/green-ent": "green-ent",
	}
	for in, want := range tests {
		if got := slugOf(in); got != want {
			t.Errorf("slugOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsBlockedHost(t *testing.T) {
	tests := map[string]bool{
		"pagead2.googlesyndication.com": true,
		"IMASDK.googleapis.com":         true,
		"www.google-analytics.com.":     true,
		"googleapis.com":                false,
		"tamashaweb.com":                false,
		"":                              false,
	}
	for host, want := range tests {
		if got := isBlockedHost(host); got != want {
			t.Errorf("isBlockedHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestShapeWalk(t *testing.T) {
	const base = "https://site"
	home := base + "/home"
	tests := []struct {
		name      string
		remember  string
		landed    map[string]string // requested -> landed; missing means on target
		captured  bool
		err       error
		wantURL   string
		wantCalls int
		wantShape string
		wantKind  models.ErrorKind
	}{
		{
			name:      "off channel then on channel",
			landed:    map[string]string{base + "/ary-news": home},
			wantURL:   base + "/watch/ary-news",
			wantCalls: 2,
			wantShape: "watch/ary-news",
		},
		{
			name:      "off channel with a capture",
			landed:    map[string]string{base + "/ary-news": home},
			captured:  true,
			wantURL:   home,
			wantCalls: 1,
		},
		{
			name:     "every shape off channel",
			remember: "live/ary-news",
			landed: map[string]string{
				base + "/live/ary-news":  home + "?from=live",
				base + "/ary-news":       home,
				base + "/watch/ary-news": home,
			},
			wantURL:   home + "?from=live",
			wantCalls: 3,
		},
		{
			name:      "navigation deadline on every shape",
			err:       context.DeadlineExceeded,
			wantCalls: 3,
			wantKind:  models.ErrKindNavigationTimeout,
		},
		{
			name:      "browser error on every shape",
			err:       errors.New("target closed"),
			wantCalls: 3,
			wantKind:  models.ErrKindBrowser,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shapes := NewShapeMemory(time.Hour)
			defer shapes.Stop()
			if tt.remember != "" {
				shapes.Set("ary-news", tt.remember)
			}

			var calls []string
			w := shapeWalk{
				channel: models.Channel{Name: "ary-news", SitePath: "ary-news"},
				baseURL: base,
				shapes:  shapes,
				load: func(_ context.Context, target string) (*engine.Landing, error) {
					calls = append(calls, target)
					if tt.err != nil {
						return nil, tt.err
					}
					landed, ok := tt.landed[target]
					if !ok {
						landed = target
					}
					return &engine.Landing{RequestedURL: target, URL: landed}, nil
				},
				captured: func() bool { return tt.captured },
			}

			landing, err := w.run(context.Background())
			if len(calls) != tt.wantCalls {
				t.Errorf("loads = %v, want %d", calls, tt.wantCalls)
			}
			if got := shapes.Get("ary-news"); got != tt.wantShape {
				t.Errorf("remembered shape = %q, want %q", got, tt.wantShape)
			}
			if tt.wantKind != "" {
				var ee *models.ExtractError
				if !errors.As(err, &ee) || ee.Kind != tt.wantKind {
					t.Fatalf("err = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if landing.URL != tt.wantURL {
				t.Errorf("landing = %q, want %q", landing.URL, tt.wantURL)
			}
		})
	}
}

func TestShapeWalk_StopsWhenContextEnds(t *testing.T) {
	shapes := NewShapeMemory(time.Hour)
	defer shapes.Stop()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	w := shapeWalk{
		channel: models.Channel{Name: "ary-news", SitePath: "ary-news"},
		baseURL: "https://site",
		shapes:  shapes,
		load: func(context.Context, string) (*engine.Landing, error) {
			calls++
			cancel()
			return nil, context.Canceled
		},
		captured: func() bool { return false },
	}
	if _, err := w.run(ctx); err == nil {
		t.Fatal("run succeeded with every load failing")
	}
	if calls != 1 {
		t.Errorf("loads = %d, want 1 after the context ended", calls)
	}
}
