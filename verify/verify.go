// Package verify fetches a selected manifest URL the way a browser would and
// checks that it is a playable HLS playlist.
package verify

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/streamgrab/models"
)

// maxPlaylistBytes caps how much of a manifest is read.
const maxPlaylistBytes = 1 << 20

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is Chrome's ClientHello with ALPN limited to http/1.1, since
// http.Transport cannot speak h2 over a utls connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// Verifier GETs manifests with a Chrome TLS fingerprint and the portal as
// referer, so CDNs that check either see what the player would send.
// It is safe for concurrent use.
type Verifier struct {
	client  *http.Client
	referer string
}

// New creates a Verifier. proxy, when it is an http(s) URL, routes requests
// through the same egress as the browser; signed URLs are often bound to the
// client IP. Proxied requests use Go's TLS stack inside the CONNECT tunnel.
func New(timeout time.Duration, proxy, baseURL string) *Verifier {
	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			transport.Proxy = http.ProxyURL(u)
		} else {
			slog.Warn("verifier ignores unsupported proxy", "proxy", proxy)
		}
	}
	referer := ""
	if baseURL != "" {
		referer = strings.TrimRight(baseURL, "/") + "/"
	}
	return &Verifier{
		client:  &http.Client{Transport: transport, Timeout: timeout},
		referer: referer,
	}
}

// Verify never returns nil; transport failures are reported in Error.
func (v *Verifier) Verify(ctx context.Context, manifestURL string) *models.Verification {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return &models.Verification{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if v.referer != "" {
		req.Header.Set("Referer", v.referer)
		req.Header.Set("Origin", strings.TrimSuffix(v.referer, "/"))
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return &models.Verification{Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistBytes))
	if err != nil {
		return &models.Verification{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read body: %v", err),
		}
	}

	result := inspectPlaylist(body)
	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.OK = false
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	slog.Debug("manifest verified",
		"url", manifestURL,
		"status", resp.StatusCode,
		"ok", result.OK,
		"variants", result.Variants,
		"segments", result.Segments,
	)
	return result
}

// inspectPlaylist checks the #EXTM3U header and counts variant streams and
// media segments. A playlist with neither is not playable.
func inspectPlaylist(body []byte) *models.Verification {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))

	v := &models.Verification{}
	header := false
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), maxPlaylistBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !header {
			if line != "#EXTM3U" {
				v.Error = "missing #EXTM3U header"
				return v
			}
			header = true
			continue
		}
		switch {
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF"):
			v.Variants++
		case strings.HasPrefix(line, "#EXTINF"):
			v.Segments++
		}
	}

	switch {
	case !header:
		v.Error = "empty playlist"
	case v.Variants == 0 && v.Segments == 0:
		v.Error = "playlist has no variants or segments"
	default:
		v.OK = true
		v.IsMaster = v.Variants > 0
	}
	return v
}

func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("verify: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}
