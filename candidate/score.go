package candidate

import "strings"

// Weights are the additive scoring terms. The defaults keep the ordering
// segment playlist > master manifest > bare .m3u8, with a signed token
// dominating every filename signal and ad hosts effectively disqualified.
type Weights struct {
	SegmentPlaylist int // "playlist.m3u8"
	Chunklist       int // "chunklist"
	IndexPlaylist   int // "index.m3u8"
	MasterPlaylist  int // "master.m3u8"
	BareManifest    int // any other ".m3u8"
	SignedAuth      int
	SessionParam    int
	SecureScheme    int
	PerParam        int
	LengthStep      int // one point per LengthStep characters...
	LengthCap       int // ...up to LengthCap points
	AdPenalty       int
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{
		SegmentPlaylist: 100,
		Chunklist:       90,
		IndexPlaylist:   80,
		MasterPlaylist:  50,
		BareManifest:    40,
		SignedAuth:      200,
		SessionParam:    30,
		SecureScheme:    5,
		PerParam:        10,
		LengthStep:      50,
		LengthCap:       20,
		AdPenalty:       1000,
	}
}

// adFragments mark advertising or analytics URLs that must never win.
var adFragments = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"imasdk.googleapis.com",
	"amazon-adsystem.com",
	"moatads.com",
	"scorecardresearch.com",
	"adservice.",
	"/vast/",
	"/ads/",
}

// Scorer ranks candidate URLs by likely usefulness.
type Scorer struct {
	w Weights
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Score returns the additive score of rawURL. Higher is better.
func (s *Scorer) Score(rawURL string) int {
	w := s.w
	lower := strings.ToLower(rawURL)
	score := 0

	switch {
	case strings.Contains(lower, "playlist.m3u8"):
		score += w.SegmentPlaylist
	case strings.Contains(lower, "chunklist"):
		score += w.Chunklist
	case strings.Contains(lower, "index.m3u8"):
		score += w.IndexPlaylist
	case strings.Contains(lower, "master.m3u8"):
		score += w.MasterPlaylist
	case strings.Contains(lower, ".m3u8"):
		score += w.BareManifest
	}

	if HasSignedAuth(lower) {
		score += w.SignedAuth
	}
	if strings.Contains(lower, SessionParam) {
		score += w.SessionParam
	}
	if strings.HasPrefix(lower, "https://") {
		score += w.SecureScheme
	}

	score += len(paramKeys(rawURL)) * w.PerParam

	if w.LengthStep > 0 {
		score += min(len(rawURL)/w.LengthStep, w.LengthCap)
	}

	for _, frag := range adFragments {
		if strings.Contains(lower, frag) {
			score -= w.AdPenalty
			break
		}
	}

	return score
}

// paramKeys returns the distinct, lower-cased query parameter names of a URL.
// It works on the raw string so malformed escapes do not hide parameters.
func paramKeys(rawURL string) []string {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return nil
	}
	query, _, _ = strings.Cut(query, "#")

	seen := make(map[string]struct{})
	var keys []string
	for _, part := range strings.Split(query, "&") {
		key, _, _ := strings.Cut(part, "=")
		key = strings.ToLower(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
