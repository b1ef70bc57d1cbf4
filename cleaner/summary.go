package cleaner

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/use-agent/streamgrab/models"
)

// DefaultMaxTokens caps the markdown kept in a summary.
const DefaultMaxTokens = 600

// Summarizer renders what a landing page showed as short markdown, so an
// operator reading a diagnostic report can see a paywall, an error page or a
// player shell without opening a browser.
//
// The converter is created once and reused (goroutine-safe).
type Summarizer struct {
	conv      *converter.Converter
	policy    *bluemonday.Policy
	maxTokens int
}

// NewSummarizer returns a Summarizer keeping at most maxTokens estimated
// tokens of markdown. Non-positive values use DefaultMaxTokens.
func NewSummarizer(maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Summarizer{
		conv:      newMarkdownConverter(),
		policy:    bluemonday.UGCPolicy(),
		maxTokens: maxTokens,
	}
}

// Summarize never fails: a page that defeats every stage still yields its
// title and whatever text could be recovered.
//
// Flow:
//  1. Strip player, ad and script noise.
//  2. Extract main content with readability and pruning, keep the better one.
//  3. Sanitize, then convert to markdown with reference-style links.
//  4. Truncate to the token budget.
func (s *Summarizer) Summarize(rawHTML, pageURL string) *models.PageSummary {
	if strings.TrimSpace(rawHTML) == "" {
		return nil
	}

	// ── 1. Noise ────────────────────────────────────────────────────
	cleaned := StripNoise(rawHTML, noiseSelectors)

	// ── 2. Main content ─────────────────────────────────────────────
	article := pickArticle(cleaned, pageURL)

	// ── 3. Markdown ─────────────────────────────────────────────────
	// Extracted content can still carry inline handlers and forms.
	md, err := ToMarkdown(s.conv, s.policy.Sanitize(article.Content), pageURL)
	if err != nil {
		slog.Warn("summary: markdown conversion failed, using plain text",
			"url", pageURL, "error", err,
		)
		md = article.TextContent
	}
	body, refs := ConvertToCitations(strings.TrimSpace(md))

	// ── 4. Budget ───────────────────────────────────────────────────
	body, truncated := TruncateTokens(body, s.maxTokens)
	md = body
	if len(refs) > 0 {
		md += "\n\n---\n" + strings.Join(refs, "\n")
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = documentTitle(rawHTML)
	}
	return &models.PageSummary{
		Title:     title,
		SiteName:  article.SiteName,
		Excerpt:   article.Excerpt,
		Markdown:  md,
		Tokens:    EstimateTokens(md),
		Truncated: truncated,
	}
}

// pickArticle runs readability and pruning concurrently and keeps whichever
// recovered more text. Player pages are short, so readability's own
// minimum-length fallback fires often and pruning is the usual winner.
func pickArticle(rawHTML, pageURL string) readability.Article {
	var (
		article   readability.Article
		extracted bool
		pruned    string
		pruneErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		article, extracted = ExtractContent(rawHTML, pageURL)
	}()
	go func() {
		defer wg.Done()
		pruned, pruneErr = PruneContent(rawHTML)
	}()
	wg.Wait()

	if pruneErr != nil {
		slog.Debug("summary: pruning failed", "url", pageURL, "error", pruneErr)
		return article
	}

	prunedText := stripTags(pruned)
	if extracted && len(strings.TrimSpace(article.TextContent)) >= len(prunedText) {
		return article
	}

	// Keep readability's metadata even when its body lost.
	return readability.Article{
		Title:       article.Title,
		Excerpt:     article.Excerpt,
		SiteName:    article.SiteName,
		Content:     pruned,
		TextContent: prunedText,
	}
}

// stripTags extracts visible text from an HTML fragment.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func documentTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
