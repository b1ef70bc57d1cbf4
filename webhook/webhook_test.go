package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/streamgrab/models"
)

func TestDeliver_SignsBody(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, "s3cret")
	ev := &Event{
		Type:      EventExtracted,
		Channel:   "ary-news",
		Timestamp: 1760000000,
		Data:      &models.ExtractionResult{Success: true, Channel: "ary-news", StreamURL: "https://cdn/p.m3u8"},
	}
	if err := n.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if !Valid("s3cret", gotBody, gotSig) {
		t.Errorf("signature %q does not match body", gotSig)
	}
	if Valid("other", gotBody, gotSig) {
		t.Error("signature accepted under the wrong secret")
	}

	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != EventExtracted || decoded.Data.StreamURL != "https://cdn/p.m3u8" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDeliver_NoSecretNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("unsigned notifier sent a signature")
		}
	}))
	defer srv.Close()

	if err := New(srv.URL, "").Deliver(context.Background(), &Event{Type: EventFailed}); err != nil {
		t.Fatal(err)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := New(srv.URL, "").Deliver(context.Background(), &Event{Type: EventFailed}); err == nil {
		t.Error("expected an error for a 502 endpoint")
	}
}

func TestNotify_RetriesAndSkipsCacheHits(t *testing.T) {
	var calls atomic.Int32
	done := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var ev Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		done <- ev.Type
	}))
	defer srv.Close()

	n := New(srv.URL, "k")
	n.delays = []time.Duration{0, time.Millisecond}

	n.Notify(&models.ExtractionResult{Success: true, Source: "cache"})
	n.Notify(&models.ExtractionResult{Success: false, Channel: "geo-news", Source: "fresh"})

	select {
	case typ := <-done:
		if typ != EventFailed {
			t.Errorf("event type = %q, want %q", typ, EventFailed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event never delivered")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("endpoint called %d times, want 2 (cache hit skipped, one retry)", got)
	}
}

func TestNew_EmptyURL(t *testing.T) {
	n := New("", "x")
	if n != nil {
		t.Fatal("New(\"\") should disable notifications")
	}
	n.Notify(&models.ExtractionResult{})
}
