package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Signal weights for block scoring.
const (
	wTextDensity = 3.0
	wLinkDensity = -2.0
	wTag         = 1.5
	wClassID     = 1.0
	wTextLength  = 0.5
)

// positiveHints in a class or id mark blocks that tend to hold the message a
// visitor is meant to read, including paywall and error notices.
var positiveHints = []string{
	"content", "main", "message", "notice", "error", "alert",
	"subscribe", "premium", "login", "title", "description",
}

// negativeHints mark boilerplate.
var negativeHints = []string{
	"sidebar", "widget", "nav", "menu", "footer", "banner", "social",
	"share", "related", "recommend", "promo", "advert", "cookie",
}

// PruneContent keeps the top-level body blocks that score above zero. When
// nothing scores, the whole body is returned so a summary is never empty.
func PruneContent(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return rawHTML, nil
	}

	var kept []string
	body.Children().Each(func(_ int, el *goquery.Selection) {
		if blockScore(el) <= 0 {
			return
		}
		if html, err := goquery.OuterHtml(el); err == nil {
			kept = append(kept, html)
		}
	})

	if len(kept) == 0 {
		html, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return html, nil
	}
	return strings.Join(kept, "\n"), nil
}

func blockScore(el *goquery.Selection) float64 {
	outer, err := goquery.OuterHtml(el)
	if err != nil || outer == "" {
		return 0
	}

	text := strings.TrimSpace(el.Text())
	textLen := len(text)

	textDensity := float64(textLen) / float64(len(outer))

	linkLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(strings.TrimSpace(a.Text()))
	})
	linkDensity := 0.0
	if textLen > 0 {
		linkDensity = float64(linkLen) / float64(textLen)
	}

	return textDensity*wTextDensity +
		linkDensity*wLinkDensity +
		tagScore(goquery.NodeName(el))*wTag +
		hintScore(el)*wClassID +
		math.Log10(float64(textLen)+1)*wTextLength
}

func tagScore(tag string) float64 {
	switch tag {
	case "article", "main", "section", "h1", "h2", "p":
		return 5
	case "nav", "footer", "aside", "header", "form":
		return -5
	}
	return 0
}

// hintScore counts at most one positive and one negative hint.
func hintScore(el *goquery.Selection) float64 {
	class, _ := el.Attr("class")
	id, _ := el.Attr("id")
	attrs := strings.ToLower(class + " " + id)

	score := 0.0
	if containsAny(attrs, positiveHints) {
		score += 3
	}
	if containsAny(attrs, negativeHints) {
		score -= 3
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
