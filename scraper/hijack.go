package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/streamgrab/candidate"
)

// resourceTypes maps STREAMGRAB_BLOCKED_RESOURCES names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// Hosts failed in every session. A pre-roll served from one of them would
// otherwise race the channel manifest and win the capture window.
var (
	videoAdHosts = []string{
		"imasdk.googleapis.com",
		"fwmrm.net",
		"springserve.com",
		"spotxchange.com",
		"spotx.tv",
		"innovid.com",
		"tremorhub.com",
		"serving-sys.com",
	}
	displayAdHosts = []string{
		"doubleclick.net",
		"googlesyndication.com",
		"googleadservices.com",
		"googletagservices.com",
		"adnxs.com",
		"amazon-adsystem.com",
		"pubmatic.com",
		"rubiconproject.com",
		"openx.net",
		"criteo.com",
		"taboola.com",
		"outbrain.com",
		"media.net",
	}
	trackerHosts = []string{
		"google-analytics.com",
		"googletagmanager.com",
		"connect.facebook.net",
		"scorecardresearch.com",
		"chartbeat.com",
		"hotjar.com",
		"moatads.com",
		"doubleverify.com",
		"adsafeprotected.com",
	}
)

var blockedHosts = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, group := range [][]string{videoAdHosts, displayAdHosts, trackerHosts} {
		for _, h := range group {
			set[h] = struct{}{}
		}
	}
	return set
}()

// isBlockedHost reports whether host or one of its parent domains is listed.
func isBlockedHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := blockedHosts[host]; ok {
			return true
		}
		_, parent, found := strings.Cut(host, ".")
		if !found {
			return false
		}
		host = parent
	}
	return false
}

// setupHijack fails the configured resource types and every request to a
// blocked host. Manifests and segments always pass whatever their type. The
// caller stops the returned router when the session closes.
func setupHijack(page *rod.Page, typeNames []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(typeNames))
	for _, name := range typeNames {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(h.Request.URL().String(), h.Request.Type(), blocked) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()

	return router
}

// shouldBlock decides the fate of one intercepted request.
func shouldBlock(rawURL string, rt proto.NetworkResourceType, blocked map[proto.NetworkResourceType]struct{}) bool {
	if u, err := url.Parse(rawURL); err == nil && isBlockedHost(u.Hostname()) {
		return true
	}
	if candidate.MatchesNetworkMarker(rawURL) || candidate.IsMediaSegment(rawURL) {
		return false
	}
	_, drop := blocked[rt]
	return drop
}
