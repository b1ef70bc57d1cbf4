package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/streamgrab/models"
)

func TestAPIClient_Call(t *testing.T) {
	var gotKey, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNKNOWN_CHANNEL","message":"unknown channel slug: 'ary'"},"close_matches":["ary-news"],"hint":"Check /api/v1/channels"}`))
	}))
	defer srv.Close()

	c := newAPIClient(srv.URL+"/", "key", time.Second)
	body, status, err := c.call(context.Background(), http.MethodGet, "/api/v1/stream", url.Values{"channel": {"ary"}})
	if err != nil {
		t.Fatal(err)
	}
	if gotKey != "key" || gotQuery != "channel=ary" {
		t.Errorf("key %q, query %q", gotKey, gotQuery)
	}

	msg, ok := requestError(body, status)
	if !ok {
		t.Fatal("request error not recognised")
	}
	for _, want := range []string{"UNKNOWN_CHANNEL", "HTTP 404", "ary-news", "Hint:"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q lacks %q", msg, want)
		}
	}
}

func TestRequestError_IgnoresExtractionFailures(t *testing.T) {
	body := []byte(`{"success":false,"channel":"geo-news-live","error_kind":"PREMIUM_GATED","error":"premium wall"}`)
	if _, ok := requestError(body, http.StatusForbidden); ok {
		t.Error("extraction failure treated as a request error")
	}
}

func TestFormatStream(t *testing.T) {
	out := formatStream(&models.ExtractionResult{
		Success:       true,
		Channel:       "ary-news",
		StreamURL:     "https://cdn/live/playlist.m3u8?wmsAuthSign=a",
		Alternates:    []string{"https://cdn/live/chunklist.m3u8"},
		Score:         345,
		CapturedCount: 4,
		Source:        "fresh",
		Verification:  &models.Verification{OK: true, StatusCode: 200, IsMaster: true, Variants: 3},
	})
	for _, want := range []string{"ary-news (fresh)", "wmsAuthSign=a", "- https://cdn/live/chunklist.m3u8", "Score 345", "3 variants"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestFormatFailure(t *testing.T) {
	out := formatFailure(&models.ExtractionResult{
		Channel:     "geo-news-live",
		ErrorKind:   models.ErrKindPremiumGated,
		Error:       "premium wall",
		DetectedURL: "https://site/premium",
		Hint:        models.ErrKindPremiumGated.Hint(),
	})
	if !strings.HasPrefix(out, "PREMIUM_GATED for geo-news-live") || !strings.Contains(out, "Landed on: https://site/premium") {
		t.Errorf("formatFailure = %q", out)
	}
}

func TestFormatChannels_SkipsEmptyCategories(t *testing.T) {
	out := formatChannels(&models.ChannelsResponse{
		Total: 2,
		ByCategory: map[string][]string{
			"news":     {"ary-news"},
			"other":    {"tamasha-life-hd"},
			"regional": {},
		},
	})
	if strings.Contains(out, "regional") {
		t.Errorf("empty category listed:\n%s", out)
	}
	if strings.Index(out, "news") > strings.Index(out, "other") {
		t.Errorf("categories not sorted:\n%s", out)
	}
}

func TestFormatReport(t *testing.T) {
	out := formatReport(&models.DiagnosticReport{
		Channel:   "green-entertainment",
		LandedURL: "https://site/green-entertainment",
		ProbeHits: map[string][]models.CandidateInfo{
			"REGEX_SCAN": {{URL: "https://cdn/a.m3u8"}},
			"DOM_SRC":    {},
		},
		Best:   &models.CandidateInfo{URL: "https://cdn/a.m3u8", Score: 120, Method: "REGEX_SCAN"},
		States: []string{"GATE_WAIT", "NAVIGATING", "SUCCEEDED"},
		Page:   &models.PageSummary{Markdown: "# Green Entertainment"},
	})
	for _, want := range []string{"Probe DOM_SRC: 0 hits", "Probe REGEX_SCAN: 1 hits", "Best: https://cdn/a.m3u8", "GATE_WAIT → NAVIGATING", "# Green Entertainment"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}
