package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const masterPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
chunklist_360.m3u8?wmsAuthSign=a
#EXT-X-STREAM-INF:BANDWIDTH=1400000,RESOLUTION=1280x720
chunklist_720.m3u8?wmsAuthSign=a
`

const mediaPlaylist = "\xef\xbb\xbf#EXTM3U\r\n#EXT-X-TARGETDURATION:6\r\n#EXTINF:6.0,\r\nseg1.ts\r\n#EXTINF:6.0,\r\nseg2.ts\r\n#EXTINF:6.0,\r\nseg3.ts\r\n"

func TestInspectPlaylist(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ok       bool
		master   bool
		variants int
		segments int
	}{
		{"master", masterPlaylist, true, true, 2, 0},
		{"media with BOM and CRLF", mediaPlaylist, true, false, 0, 3},
		{"html error page", "<html><body>403 Forbidden</body></html>", false, false, 0, 0},
		{"empty", "", false, false, 0, 0},
		{"header only", "#EXTM3U\n#EXT-X-VERSION:3\n", false, false, 0, 0},
		{"leading blank lines", "\n\n#EXTM3U\n#EXTINF:4,\na.ts\n", true, false, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := inspectPlaylist([]byte(tt.body))
			if v.OK != tt.ok || v.IsMaster != tt.master || v.Variants != tt.variants || v.Segments != tt.segments {
				t.Errorf("inspectPlaylist = %+v", v)
			}
			if !tt.ok && v.Error == "" {
				t.Error("failed inspection without an error message")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	var gotReferer, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/live/playlist.m3u8":
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			_, _ = w.Write([]byte(masterPlaylist))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("#EXTM3U\n#EXTINF:1,\nx.ts\n"))
		}
	}))
	defer srv.Close()

	v := New(5*time.Second, "", "https://tamashaweb.com/")

	got := v.Verify(context.Background(), srv.URL+"/live/playlist.m3u8")
	if !got.OK || !got.IsMaster || got.Variants != 2 || got.StatusCode != 200 {
		t.Errorf("Verify = %+v", got)
	}
	if got.ContentType != "application/vnd.apple.mpegurl" {
		t.Errorf("ContentType = %q", got.ContentType)
	}
	if gotReferer != "https://tamashaweb.com/" || gotUA != chromeUA {
		t.Errorf("headers: referer %q, ua %q", gotReferer, gotUA)
	}

	denied := v.Verify(context.Background(), srv.URL+"/expired.m3u8")
	if denied.OK || denied.StatusCode != http.StatusForbidden || denied.Error != "HTTP 403" {
		t.Errorf("expired URL verified as %+v", denied)
	}
}

func TestVerify_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	got := New(time.Second, "", "").Verify(context.Background(), addr+"/p.m3u8")
	if got == nil || got.OK || got.Error == "" {
		t.Errorf("Verify(closed server) = %+v", got)
	}
}
