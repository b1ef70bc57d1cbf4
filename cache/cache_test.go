package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration, max int) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	return New(ttl, max, WithClock(clk.now)), clk
}

func TestGet_TTLBoundary(t *testing.T) {
	ttl := 5 * time.Minute
	c, clk := newTestCache(ttl, 100)

	c.Set("ary-news", "https://cdn/playlist.m3u8?wmsAuthSign=a", nil)

	clk.advance(ttl - time.Second)
	e, ok := c.Get("ary-news")
	if !ok {
		t.Fatal("entry missing at T+TTL-1s")
	}
	if e.URL != "https://cdn/playlist.m3u8?wmsAuthSign=a" {
		t.Errorf("URL = %q", e.URL)
	}

	clk.advance(2 * time.Second)
	if _, ok := c.Get("ary-news"); ok {
		t.Fatal("entry still present at T+TTL+1s")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted on lookup, Len = %d", c.Len())
	}
}

func TestGet_NoSweepWithoutLookup(t *testing.T) {
	c, clk := newTestCache(time.Minute, 100)
	c.Set("a", "u", nil)
	clk.advance(time.Hour)
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1 (eviction is lazy)", c.Len())
	}
}

func TestSet_OverwriteRefreshesTimestamp(t *testing.T) {
	c, clk := newTestCache(time.Minute, 100)
	c.Set("a", "old", nil)
	clk.advance(50 * time.Second)
	c.Set("a", "new", []string{"alt"})
	clk.advance(50 * time.Second)

	e, ok := c.Get("a")
	if !ok {
		t.Fatal("overwritten entry expired early")
	}
	if e.URL != "new" || len(e.Alternates) != 1 {
		t.Errorf("entry = %+v", e)
	}
}

func TestSet_AlternatesCopied(t *testing.T) {
	c, _ := newTestCache(time.Minute, 100)
	alts := []string{"x", "y"}
	c.Set("a", "u", alts)
	alts[0] = "mutated"
	e, _ := c.Get("a")
	if e.Alternates[0] != "x" {
		t.Errorf("cache shares caller slice: %v", e.Alternates)
	}
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c, _ := newTestCache(time.Minute, 2)
	c.Set("a", "1", nil)
	c.Set("b", "2", nil)
	c.Set("c", "3", nil)
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newest entry evicted")
	}
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10)
	c.Set("a", "1", nil)
	c.Set("b", "2", nil)

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	if n := c.Clear(); n != 1 {
		t.Errorf("Clear = %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestEntries_SkipsExpiredAndSorts(t *testing.T) {
	c, clk := newTestCache(time.Minute, 10)
	c.Set("zeta", "1", nil)
	clk.advance(2 * time.Minute)
	c.Set("beta", "2", nil)
	c.Set("alpha", "3", nil)

	got := c.Entries()
	if len(got) != 2 {
		t.Fatalf("Entries = %d, want 2", len(got))
	}
	if got[0].Channel != "alpha" || got[1].Channel != "beta" {
		t.Errorf("order = %s, %s", got[0].Channel, got[1].Channel)
	}
}
