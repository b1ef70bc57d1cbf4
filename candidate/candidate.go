// Package candidate ranks captured stream URLs: it recognises manifest-shaped
// URLs, scores them, collapses duplicates and picks a winner.
//
// Everything here is pure; the browser-facing code only feeds it strings.
package candidate

import (
	"strings"
	"time"

	"github.com/use-agent/streamgrab/models"
)

// Method records which detection heuristic produced a candidate.
type Method string

const (
	MethodNetwork       Method = "NETWORK"
	MethodDOMSrc        Method = "DOM_SRC"
	MethodPlayerObject  Method = "PLAYER_OBJECT"
	MethodEmbeddedJSON  Method = "EMBEDDED_JSON"
	MethodRegexScan     Method = "REGEX_SCAN"
	MethodDataAttribute Method = "DATA_ATTRIBUTE"
)

// Candidate is a URL suspected of being a playable HLS manifest.
type Candidate struct {
	URL        string
	HTTPStatus int
	ObservedAt time.Time
	Method     Method
}

// SessionParam is the session-tracking query parameter ignored by dedup.
const SessionParam = "nimblesessionid"

// signedAuthMarkers are query-parameter names carrying a time-limited token.
var signedAuthMarkers = []string{"wmsauthsign", "jazzauth"}

// networkMarkers flag a response URL as HLS-related.
var networkMarkers = []string{
	".m3u8",
	"wmsauthsign",
	"jazzauth",
	"playlist",
	"master.m3u8",
	"chunklist",
	"index.m3u8",
}

// segmentExtensions are media segment suffixes that must never be blocked.
var segmentExtensions = []string{".ts", ".m4s", ".aac", ".m4a", ".mp4", ".fmp4"}

// MatchesNetworkMarker reports whether a response URL looks HLS-related.
func MatchesNetworkMarker(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, m := range networkMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsManifestLike reports whether a value scraped from the DOM or a script
// looks like a manifest URL rather than an arbitrary link.
func IsManifestLike(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "//") {
		return false
	}
	return strings.Contains(lower, ".m3u8") || HasSignedAuth(lower)
}

// IsMediaSegment reports whether the URL path ends in a media segment suffix.
func IsMediaSegment(rawURL string) bool {
	p := strings.ToLower(stripQuery(rawURL))
	for _, ext := range segmentExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// HasSignedAuth reports whether the URL carries a recognised signed-auth token.
func HasSignedAuth(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, m := range signedAuthMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Info converts a candidate to its wire view.
func (c Candidate) Info(score int) models.CandidateInfo {
	return models.CandidateInfo{
		URL:        c.URL,
		Method:     string(c.Method),
		HTTPStatus: c.HTTPStatus,
		Score:      score,
		ObservedAt: c.ObservedAt,
	}
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
