package cleaner

import (
	"strings"
	"testing"
)

const premiumPage = `<html><head><title>Geo News Live | Tamasha</title></head><body>
<nav class="main-nav"><a href="/">Home</a><a href="/live">Live</a><a href="/movies">Movies</a></nav>
<div class="player-wrap"><video class="vjs-tech" src="blob:https://site/1"></video></div>
<div class="premium-notice">
  <h2>Subscribe to watch</h2>
  <p>This channel is available on Tamasha Premium. <a href="/subscribe">Get premium</a> to continue watching.</p>
</div>
<script>window.player = {src: "https://cdn/live/playlist.m3u8"};</script>
<footer class="site-footer"><a href="/terms">Terms</a></footer>
</body></html>`

func TestSummarize_PremiumPage(t *testing.T) {
	s := NewSummarizer(0)
	got := s.Summarize(premiumPage, "https://tamashaweb.com/geo-news")
	if got == nil {
		t.Fatal("Summarize returned nil")
	}
	if !strings.HasPrefix(got.Title, "Geo News Live") {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.Contains(got.Markdown, "Subscribe to watch") {
		t.Errorf("markdown lost the notice:\n%s", got.Markdown)
	}
	if strings.Contains(got.Markdown, "playlist.m3u8") {
		t.Error("script content leaked into the summary")
	}
	if !strings.Contains(got.Markdown, "https://tamashaweb.com/subscribe") {
		t.Errorf("relative link not resolved into a reference:\n%s", got.Markdown)
	}
	if got.Tokens == 0 || got.Truncated {
		t.Errorf("Tokens = %d, Truncated = %v", got.Tokens, got.Truncated)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := NewSummarizer(0).Summarize("  ", "https://site"); got != nil {
		t.Errorf("Summarize(blank) = %+v, want nil", got)
	}
}

func TestSummarize_Truncates(t *testing.T) {
	long := "<html><body><main><p>" + strings.Repeat("stream unavailable in your region ", 200) + "</p></main></body></html>"
	got := NewSummarizer(20).Summarize(long, "https://site/x")
	if !got.Truncated {
		t.Fatal("long page not truncated")
	}
	if got.Tokens > 25 {
		t.Errorf("Tokens = %d, want about 20", got.Tokens)
	}
}

func TestStripNoise(t *testing.T) {
	in := `<html><body><p>keep</p><script>drop()</script><div class="vjs-control-bar">x</div><iframe src="/ad"></iframe></body></html>`
	out := StripNoise(in, noiseSelectors)
	for _, gone := range []string{"drop()", "vjs-control-bar", "<iframe"} {
		if strings.Contains(out, gone) {
			t.Errorf("output still contains %q: %s", gone, out)
		}
	}
	if !strings.Contains(out, "<p>keep</p>") {
		t.Errorf("content removed: %s", out)
	}
	if got := StripNoise("<p>plain</p>", nil); got != "<p>plain</p>" {
		t.Errorf("no selectors changed input: %q", got)
	}
}

func TestPruneContent_DropsBoilerplate(t *testing.T) {
	in := `<html><body>
<nav class="menu"><a href="/a">A</a><a href="/b">B</a></nav>
<div class="error-message"><p>Channel not found. It may have been removed.</p></div>
<footer><a href="/t">Terms</a></footer></body></html>`
	out, err := PruneContent(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Channel not found") {
		t.Errorf("message dropped: %s", out)
	}
	if strings.Contains(out, "<nav") || strings.Contains(out, "<footer") {
		t.Errorf("boilerplate kept: %s", out)
	}
}

func TestConvertToCitations(t *testing.T) {
	body, refs := ConvertToCitations("[Login](https://s/login) or [sign in](https://s/login), see [FAQ](https://s/faq)")
	if body != "[Login][1] or [sign in][1], see [FAQ][2]" {
		t.Errorf("body = %q", body)
	}
	if len(refs) != 2 || refs[0] != "[1]: https://s/login" || refs[1] != "[2]: https://s/faq" {
		t.Errorf("refs = %v", refs)
	}

	body, refs = ConvertToCitations("no links here")
	if body != "no links here" || refs != nil {
		t.Errorf("plain text changed: %q %v", body, refs)
	}
}

func TestTruncateTokens(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		max       int
		truncated bool
	}{
		{"fits", "short text", 100, false},
		{"no budget", strings.Repeat("a", 1000), 0, false},
		{"cut", strings.Repeat("word ", 100), 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := TruncateTokens(tt.text, tt.max)
			if truncated != tt.truncated {
				t.Fatalf("truncated = %v, want %v", truncated, tt.truncated)
			}
			if !truncated && got != tt.text {
				t.Errorf("untruncated text changed")
			}
			if truncated && !strings.HasSuffix(got, truncationMarker) {
				t.Errorf("missing marker: %q", got)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := map[string]int{
		"":          0,
		"a":         1,
		"abcdef":    2,
		"abcdefghi": 3,
	}
	for in, want := range tests {
		if got := EstimateTokens(in); got != want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", in, got, want)
		}
	}
}
