package scraper

import "sync/atomic"

// identity is the browser fingerprint one session presents.
type identity struct {
	UserAgent      string
	Platform       string
	AcceptLanguage string
	Width          int
	Height         int
}

// identities is rotated round-robin across sessions so consecutive
// extractions do not share a fingerprint.
var identities = []identity{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Platform:       "Win32",
		AcceptLanguage: "en-US,en;q=0.9",
		Width:          1920,
		Height:         1080,
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		Platform:       "MacIntel",
		AcceptLanguage: "en-US,en;q=0.9",
		Width:          1440,
		Height:         900,
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36 Edg/129.0.0.0",
		Platform:       "Win32",
		AcceptLanguage: "en-US,en;q=0.9,ur;q=0.8",
		Width:          1536,
		Height:         864,
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Platform:       "Linux x86_64",
		AcceptLanguage: "en-US,en;q=0.9",
		Width:          1366,
		Height:         768,
	},
}

var identityCursor atomic.Uint64

// nextIdentity returns the next identity of the pool.
func nextIdentity() identity {
	n := identityCursor.Add(1) - 1
	return identities[n%uint64(len(identities))]
}
