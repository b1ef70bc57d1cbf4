package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the least TextContent, in bytes, that counts as a
// successful readability extraction.
const minContentLength = 50

// ExtractContent runs Mozilla Readability on rawHTML. The bool reports
// whether readability found real content; when it did not, the returned
// Article wraps the raw HTML so callers can proceed uniformly.
func ExtractContent(rawHTML, pageURL string) (readability.Article, bool) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		slog.Debug("readability: invalid page URL", "url", pageURL, "error", err)
		return rawArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", pageURL, "error", err)
		return rawArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		// Short pages still carry useful metadata.
		fallback := rawArticle(rawHTML)
		fallback.Title = article.Title
		fallback.Excerpt = article.Excerpt
		fallback.SiteName = article.SiteName
		return fallback, false
	}
	return article, true
}

func rawArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: stripTags(rawHTML),
	}
}
