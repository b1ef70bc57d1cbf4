package scraper

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/engine"
)

// pageReader is the slice of a live page the content probes need.
type pageReader interface {
	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// EvalStrings runs a script returning an array of strings.
	EvalStrings(ctx context.Context, js string) ([]string, error)
}

// probe inspects the page for manifest URLs by one heuristic.
type probe struct {
	method candidate.Method
	run    func(ctx context.Context, r *probeInput) []string
}

// probeChain is ordered from most to least direct evidence.
var probeChain = []probe{
	{candidate.MethodDOMSrc, probeDOMSrc},
	{candidate.MethodPlayerObject, probePlayerObject},
	{candidate.MethodEmbeddedJSON, probeEmbeddedJSON},
	{candidate.MethodRegexScan, probeRegexScan},
	{candidate.MethodDataAttribute, probeDataAttribute},
}

// probeInput memoises the rendered HTML and its parsed document across the
// probes of one run.
type probeInput struct {
	reader pageReader
	html   *string
	doc    *goquery.Document
}

func (in *probeInput) rendered(ctx context.Context) string {
	if in.html == nil {
		h, err := in.reader.HTML(ctx)
		if err != nil {
			slog.Debug("probe: reading page HTML failed", "error", err)
		}
		in.html = &h
	}
	return *in.html
}

func (in *probeInput) document(ctx context.Context) *goquery.Document {
	if in.doc == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.rendered(ctx)))
		if err != nil {
			slog.Debug("probe: parsing page HTML failed", "error", err)
			doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
		}
		in.doc = doc
	}
	return in.doc
}

// runProbes runs the chain against r. Unless exhaustive, it stops after the
// first probe that yields a manifest-shaped URL.
func runProbes(ctx context.Context, r pageReader, exhaustive bool, now func() time.Time) []engine.ProbeResult {
	in := &probeInput{reader: r}
	results := make([]engine.ProbeResult, 0, len(probeChain))

	for _, p := range probeChain {
		if ctx.Err() != nil {
			break
		}
		urls := manifestURLs(p.run(ctx, in))
		res := engine.ProbeResult{Method: p.method}
		for _, u := range urls {
			res.Candidates = append(res.Candidates, candidate.Candidate{
				URL:        u,
				HTTPStatus: 200,
				ObservedAt: now(),
				Method:     p.method,
			})
		}
		results = append(results, res)
		if len(urls) > 0 {
			slog.Info("content probe hit", "method", p.method, "count", len(urls))
			if !exhaustive {
				break
			}
		}
	}
	return results
}

// manifestURLs keeps manifest-shaped values, makes protocol-relative ones
// absolute and drops duplicates.
func manifestURLs(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !candidate.IsManifestLike(v) {
			continue
		}
		if strings.HasPrefix(v, "//") {
			v = "https:" + v
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ── DOM_SRC ──────────────────────────────────────────────────────────

const domSrcJS = `() => {
	const out = [];
	const collect = (doc) => {
		doc.querySelectorAll('video').forEach(v => {
			if (v.src) out.push(v.src);
			if (v.currentSrc) out.push(v.currentSrc);
		});
		doc.querySelectorAll('video source, source').forEach(s => {
			if (s.src) out.push(s.src);
		});
	};
	collect(document);
	document.querySelectorAll('iframe').forEach(f => {
		try { if (f.contentDocument) collect(f.contentDocument); } catch (e) {}
	});
	return out;
}`

func probeDOMSrc(ctx context.Context, in *probeInput) []string {
	return evalOrNil(ctx, in.reader, domSrcJS, candidate.MethodDOMSrc)
}

// ── PLAYER_OBJECT ────────────────────────────────────────────────────

const playerObjectJS = `() => {
	const out = [];
	const push = (u) => { if (typeof u === 'string' && u) out.push(u); };
	try {
		document.querySelectorAll('video').forEach(v => {
			if (v._hls) push(v._hls.url);
			if (v.hls) push(v.hls.url);
		});
		if (window.hls) push(window.hls.url);
	} catch (e) {}
	try {
		if (window.videojs && window.videojs.getAllPlayers) {
			window.videojs.getAllPlayers().forEach(p => push(p.currentSrc()));
		}
	} catch (e) {}
	try {
		if (window.jwplayer) {
			const p = window.jwplayer();
			if (p && p.getPlaylistItem) {
				const item = p.getPlaylistItem();
				if (item) push(item.file);
			}
		}
	} catch (e) {}
	return out;
}`

func probePlayerObject(ctx context.Context, in *probeInput) []string {
	return evalOrNil(ctx, in.reader, playerObjectJS, candidate.MethodPlayerObject)
}

func evalOrNil(ctx context.Context, r pageReader, js string, m candidate.Method) []string {
	vals, err := r.EvalStrings(ctx, js)
	if err != nil {
		slog.Debug("probe script failed", "method", m, "error", err)
		return nil
	}
	return vals
}

// ── EMBEDDED_JSON ────────────────────────────────────────────────────

const embeddedJSONSelector = `script#__NEXT_DATA__, script#__NUXT_DATA__, script[type="application/json"], script[type="application/ld+json"]`

func probeEmbeddedJSON(ctx context.Context, in *probeInput) []string {
	return embeddedJSONURLs(in.document(ctx))
}

// embeddedJSONURLs walks every framework page-data blob for string values.
// Blobs that do not parse are scanned as text.
func embeddedJSONURLs(doc *goquery.Document) []string {
	var out []string
	doc.Find(embeddedJSONSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			out = append(out, scanURLs(text)...)
			return
		}
		walkStrings(v, func(str string) {
			if candidate.IsManifestLike(str) {
				out = append(out, str)
			} else if strings.Contains(str, "m3u8") {
				out = append(out, scanURLs(str)...)
			}
		})
	})
	return out
}

func walkStrings(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case []any:
		for _, e := range t {
			walkStrings(e, fn)
		}
	case map[string]any:
		for _, e := range t {
			walkStrings(e, fn)
		}
	}
}

// ── REGEX_SCAN ───────────────────────────────────────────────────────

// urlPattern matches absolute or protocol-relative URLs up to the first
// quote, whitespace or markup character.
var urlPattern = regexp.MustCompile("(?i)(?:https?:)?//[^\\s\"'<>`\\\\]+")

var unescaper = strings.NewReplacer(
	`\/`, "/",
	`\u002F`, "/",
	`\u002f`, "/",
	`\u0026`, "&",
	"&amp;", "&",
	"&quot;", `"`,
	"&#x2F;", "/",
	"&#x2f;", "/",
	"&#47;", "/",
)

func probeRegexScan(ctx context.Context, in *probeInput) []string {
	return scanURLs(in.rendered(ctx))
}

// scanURLs unescapes the common JSON and HTML encodings of "/" and "&" and
// returns every URL-looking run in text.
func scanURLs(text string) []string {
	text = unescaper.Replace(text)
	var out []string
	for _, m := range urlPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ").,;]}")
		if candidate.IsManifestLike(m) {
			out = append(out, m)
		}
	}
	return out
}

// ── DATA_ATTRIBUTE ───────────────────────────────────────────────────

var dataAttributes = []string{
	"data-src",
	"data-url",
	"data-hls",
	"data-stream",
	"data-file",
	"data-video-src",
	"data-source",
	"data-manifest",
}

var dataAttributeSelector = cascadia.MustCompile(
	"[" + strings.Join(dataAttributes, "],[") + "]",
)

func probeDataAttribute(ctx context.Context, in *probeInput) []string {
	return dataAttributeURLs(in.document(ctx))
}

func dataAttributeURLs(doc *goquery.Document) []string {
	var out []string
	doc.FindMatcher(dataAttributeSelector).Each(func(_ int, s *goquery.Selection) {
		for _, attr := range dataAttributes {
			if v, ok := s.Attr(attr); ok {
				out = append(out, unescaper.Replace(v))
			}
		}
	})
	return out
}
