package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors never carry anything an operator needs to read: scripts,
// player chrome, embedded frames and ad slots.
var noiseSelectors = []string{
	"script",
	"style",
	"noscript",
	"template",
	"svg",
	"iframe",
	"video",
	"audio",
	"[class*='vjs-']",
	"[class*='jw-']",
	"ins.adsbygoogle",
	"[id^='google_ads']",
	"[class*='advert']",
}

// StripNoise removes every element matching one of selectors. The input is
// returned unchanged when it cannot be parsed or nothing matches.
func StripNoise(html string, selectors []string) string {
	if len(selectors) == 0 {
		return html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	matches := doc.Find(strings.Join(selectors, ", "))
	if matches.Length() == 0 {
		return html
	}
	matches.Remove()

	result, err := doc.Html()
	if err != nil {
		return html
	}
	return result
}
