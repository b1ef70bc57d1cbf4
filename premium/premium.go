// Package premium recognises login and subscription walls.
//
// Detection is plain English substring matching on the landed URL path and a
// truncated snapshot of the page text. A localized or redesigned wall is not
// recognised; callers surface the verdict in diagnostics rather than guess.
package premium

import (
	"fmt"
	"net/url"
	"strings"
)

// SnapshotLimit is how many characters of body text are inspected.
const SnapshotLimit = 4000

// pathFragments gate a page when found in the landed URL path. Order matters:
// the first match supplies the reason.
var pathFragments = []string{
	"/plans",
	"/login",
	"/subscribe",
	"/signup",
	"/otp",
	"login-required",
	"subscription",
	"premium",
	"sign-in",
	"signin",
	"get-pro",
	"upgrade",
}

// textPhrases gate a page when found in the body text snapshot.
var textPhrases = []string{
	"please login to continue",
	"subscribe to watch",
	"get tamasha pro",
	"login to watch",
	"sign in to continue",
	"this content is for pro",
	"premium content",
	"enter your otp",
}

// notFoundPhrases mark the site's own not-found page.
var notFoundPhrases = []string{
	"page not found",
	"404 not found",
	"this page could not be found",
	"channel not found",
}

// Verdict is the outcome of Classify. IsGated=false implies neither the URL
// nor the text matched any indicator.
type Verdict struct {
	IsGated bool
	Reason  string
}

// Classify reports whether the page is behind a premium wall.
func Classify(landedURL, bodyText string) Verdict {
	p := strings.ToLower(urlPath(landedURL))
	for _, frag := range pathFragments {
		if strings.Contains(p, frag) {
			return Verdict{IsGated: true, Reason: fmt.Sprintf("url path matches %q", frag)}
		}
	}

	text := strings.ToLower(Snapshot(bodyText))
	for _, phrase := range textPhrases {
		if strings.Contains(text, phrase) {
			return Verdict{IsGated: true, Reason: fmt.Sprintf("page text matches %q", phrase)}
		}
	}

	return Verdict{}
}

// IsNotFound reports whether the landed page is the site's not-found page,
// judged from the navigation status, the title and the text snapshot.
func IsNotFound(status int, title, bodyText string) bool {
	if status == 404 || status == 410 {
		return true
	}
	t := strings.ToLower(title)
	if strings.HasPrefix(t, "404") {
		return true
	}
	text := strings.ToLower(Snapshot(bodyText))
	for _, phrase := range notFoundPhrases {
		if strings.Contains(t, phrase) || strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// Snapshot truncates s to SnapshotLimit runes.
func Snapshot(s string) string {
	n := 0
	for i := range s {
		if n == SnapshotLimit {
			return s[:i]
		}
		n++
	}
	return s
}

// urlPath returns the path of rawURL, or rawURL itself when it does not parse.
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.EscapedPath()
}
