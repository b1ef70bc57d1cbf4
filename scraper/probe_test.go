package scraper

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/streamgrab/candidate"
)

type fakeReader struct {
	html      string
	htmlErr   error
	evals     map[string][]string
	htmlCalls int
}

func (f *fakeReader) HTML(context.Context) (string, error) {
	f.htmlCalls++
	return f.html, f.htmlErr
}

func (f *fakeReader) EvalStrings(_ context.Context, js string) ([]string, error) {
	if v, ok := f.evals[js]; ok {
		return v, nil
	}
	return nil, errors.New("script not stubbed")
}

func fixedNow() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestRunProbes_StopsAtFirstHit(t *testing.T) {
	r := &fakeReader{
		html: `<html><body>
			<script>var src = "https:\/\/cdn\/live\/playlist.m3u8?wmsAuthSign=abc";</script></body></html>`,
		evals: map[string][]string{
			domSrcJS:       {"blob:https://site/123"},
			playerObjectJS: {},
		},
	}

	got := runProbes(context.Background(), r, false, fixedNow)

	var methods []candidate.Method
	for _, p := range got {
		methods = append(methods, p.Method)
	}
	want := []candidate.Method{
		candidate.MethodDOMSrc,
		candidate.MethodPlayerObject,
		candidate.MethodEmbeddedJSON,
		candidate.MethodRegexScan,
	}
	if !slices.Equal(methods, want) {
		t.Fatalf("methods run = %v, want %v", methods, want)
	}
	last := got[len(got)-1]
	if len(last.Candidates) != 1 || last.Candidates[0].URL != "https://cdn/live/playlist.m3u8?wmsAuthSign=abc" {
		t.Errorf("REGEX_SCAN candidates = %+v", last.Candidates)
	}
	c := last.Candidates[0]
	if c.Method != candidate.MethodRegexScan || c.HTTPStatus != 200 || !c.ObservedAt.Equal(fixedNow()) {
		t.Errorf("candidate = %+v", c)
	}
	if r.htmlCalls != 1 {
		t.Errorf("HTML read %d times, want once per run", r.htmlCalls)
	}
}

func TestRunProbes_ExhaustiveRunsAll(t *testing.T) {
	r := &fakeReader{
		html: `<html><body><video data-src="//cdn/a/index.m3u8"></video></body></html>`,
		evals: map[string][]string{
			domSrcJS:       {"https://cdn/a/index.m3u8"},
			playerObjectJS: {"https://cdn/a/index.m3u8", "https://cdn/a/index.m3u8"},
		},
	}

	got := runProbes(context.Background(), r, true, fixedNow)
	if len(got) != len(probeChain) {
		t.Fatalf("ran %d probes, want %d", len(got), len(probeChain))
	}
	if n := len(got[1].Candidates); n != 1 {
		t.Errorf("PLAYER_OBJECT kept %d duplicates, want 1", n)
	}
	data := got[4]
	if data.Method != candidate.MethodDataAttribute || len(data.Candidates) != 1 ||
		data.Candidates[0].URL != "https://cdn/a/index.m3u8" {
		t.Errorf("DATA_ATTRIBUTE = %+v", data)
	}
}

func TestRunProbes_AllEmpty(t *testing.T) {
	r := &fakeReader{htmlErr: errors.New("target closed")}
	got := runProbes(context.Background(), r, false, fixedNow)
	if len(got) != len(probeChain) {
		t.Fatalf("ran %d probes, want all %d", len(got), len(probeChain))
	}
	for _, p := range got {
		if len(p.Candidates) != 0 {
			t.Errorf("%s produced %v from an unreadable page", p.Method, p.Candidates)
		}
	}
}

func TestEmbeddedJSONURLs(t *testing.T) {
	html := `<html><head>
		<script id="__NEXT_DATA__" type="application/json">
			{"props":{"pageProps":{"channel":{"stream":"https://cdn/live/playlist.m3u8?wmsAuthSign=zz","poster":"https://cdn/p.jpg"}}}}
		</script>
		<script type="application/ld+json">{"@type":"VideoObject","contentUrl":"https://cdn/ld/master.m3u8"}</script>
		<script type="application/json">not json but has https:\/\/cdn\/raw\/chunklist.m3u8 inside</script>
		<script>var ignored = "https://cdn/inline/playlist.m3u8";</script>
	</head></html>`

	got := embeddedJSONURLs(parseDoc(t, html))
	want := []string{
		"https://cdn/live/playlist.m3u8?wmsAuthSign=zz",
		"https://cdn/ld/master.m3u8",
		"https://cdn/raw/chunklist.m3u8",
	}
	if !slices.Equal(got, want) {
		t.Errorf("embeddedJSONURLs = %v, want %v", got, want)
	}
}

func TestScanURLs_Unescapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"json slash", `"u":"https:\/\/cdn\/a\/playlist.m3u8"`, []string{"https://cdn/a/playlist.m3u8"}},
		{"unicode slash and amp", `https:\u002F\u002Fcdn\u002Fb.m3u8?x=1\u0026y=2`, []string{"https://cdn/b.m3u8?x=1&y=2"}},
		{"html entities", `src="https:&#x2F;&#x2F;cdn&#x2F;c.m3u8?a=1&amp;b=2"`, []string{"https://cdn/c.m3u8?a=1&b=2"}},
		{"trailing punctuation", `(see https://cdn/d.m3u8).`, []string{"https://cdn/d.m3u8"}},
		{"signed without extension", `https://cdn/live?jazzauth=tok`, []string{"https://cdn/live?jazzauth=tok"}},
		{"not a manifest", `https://cdn/poster.jpg`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scanURLs(tt.text); !slices.Equal(got, tt.want) {
				t.Errorf("scanURLs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDataAttributeURLs(t *testing.T) {
	html := `<html><body>
		<div data-src="https://cdn/1/playlist.m3u8"></div>
		<div data-manifest="https:&#x2F;&#x2F;cdn&#x2F;2&#x2F;index.m3u8" data-file="https://cdn/2/poster.png"></div>
		<div data-other="https://cdn/3/playlist.m3u8"></div>
	</body></html>`

	got := manifestURLs(dataAttributeURLs(parseDoc(t, html)))
	want := []string{"https://cdn/1/playlist.m3u8", "https://cdn/2/index.m3u8"}
	if !slices.Equal(got, want) {
		t.Errorf("data attribute URLs = %v, want %v", got, want)
	}
}

func TestManifestURLs(t *testing.T) {
	got := manifestURLs([]string{
		" //cdn/a.m3u8 ",
		"https://cdn/a.m3u8",
		"blob:https://site/1",
		"/relative/b.m3u8",
		"",
	})
	if !slices.Equal(got, []string{"https://cdn/a.m3u8"}) {
		t.Errorf("manifestURLs = %v", got)
	}
}
