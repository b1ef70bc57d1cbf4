package premium

import (
	"strings"
	"testing"
)

func TestClassify_URLFragments(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		text       string
		wantGated  bool
		wantReason string
	}{
		{"login redirect empty body", "https://tamashaweb.com/login?next=/ary-news", "", true, `url path matches "/login"`},
		{"plans page", "https://tamashaweb.com/plans", "enjoy free tv", true, `url path matches "/plans"`},
		{"otp page", "https://tamashaweb.com/otp/verify", "", true, `url path matches "/otp"`},
		{"upgrade", "https://tamashaweb.com/account/upgrade", "", true, `url path matches "upgrade"`},
		{"url wins over text", "https://tamashaweb.com/subscribe", "premium content", true, `url path matches "/subscribe"`},
		{"free channel", "https://tamashaweb.com/ary-news", "Live now", false, ""},
		{"query is not path", "https://tamashaweb.com/ary-news?ref=login", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.url, tt.text)
			if got.IsGated != tt.wantGated {
				t.Errorf("IsGated = %v, want %v", got.IsGated, tt.wantGated)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestClassify_URLIgnoresBody(t *testing.T) {
	bodies := []string{"", "welcome", strings.Repeat("x", 10000), "Please login to continue"}
	for _, b := range bodies {
		if v := Classify("https://site/signin", b); !v.IsGated {
			t.Errorf("Classify with body %.20q not gated", b)
		}
	}
}

func TestClassify_TextPhrases(t *testing.T) {
	tests := []struct {
		text       string
		wantReason string
	}{
		{"Please LOGIN to continue watching", `page text matches "please login to continue"`},
		{"Get Tamasha PRO today", `page text matches "get tamasha pro"`},
		{"Enter your OTP", `page text matches "enter your otp"`},
	}
	for _, tt := range tests {
		got := Classify("https://tamashaweb.com/geo-news-live", tt.text)
		if !got.IsGated || got.Reason != tt.wantReason {
			t.Errorf("Classify(%q) = %+v, want gated with %q", tt.text, got, tt.wantReason)
		}
	}
}

func TestClassify_TextBeyondSnapshotIgnored(t *testing.T) {
	text := strings.Repeat("a", SnapshotLimit) + "premium content"
	if v := Classify("https://tamashaweb.com/x", text); v.IsGated {
		t.Errorf("phrase past the snapshot limit gated the page: %+v", v)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		title  string
		text   string
		want   bool
	}{
		{"404 status", 404, "", "", true},
		{"410 status", 410, "", "", true},
		{"404 title", 200, "404 | Tamasha", "", true},
		{"phrase in text", 200, "Tamasha", "Oops! Page not found.", true},
		{"normal page", 200, "ARY News Live", "Watch live", false},
		{"unknown status", 0, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.status, tt.title, tt.text); got != tt.want {
				t.Errorf("IsNotFound = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	if got := Snapshot("short"); got != "short" {
		t.Errorf("Snapshot(short) = %q", got)
	}
	long := strings.Repeat("é", SnapshotLimit+10)
	if got := []rune(Snapshot(long)); len(got) != SnapshotLimit {
		t.Errorf("len(Snapshot) = %d runes, want %d", len(got), SnapshotLimit)
	}
}
