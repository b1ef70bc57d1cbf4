package scraper

import (
	"sync"
	"time"
)

// shapeEntry stores the URL shape that last reached a channel's player.
type shapeEntry struct {
	path      string
	expiresAt time.Time
}

// ShapeMemory remembers which site path worked for each channel, so the next
// session tries it first instead of walking the alternates again.
// Entries expire after the configured TTL and are cleaned up periodically.
type ShapeMemory struct {
	store sync.Map // channel (string) -> *shapeEntry
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
}

// NewShapeMemory creates a ShapeMemory with the given TTL and starts
// a background goroutine that prunes expired entries every hour.
func NewShapeMemory(ttl time.Duration) *ShapeMemory {
	sm := &ShapeMemory{
		ttl:  ttl,
		now:  time.Now,
		done: make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Get returns the remembered path for a channel, or "" if not found / expired.
func (sm *ShapeMemory) Get(channel string) string {
	val, ok := sm.store.Load(channel)
	if !ok {
		return ""
	}
	entry := val.(*shapeEntry)
	if sm.now().After(entry.expiresAt) {
		sm.store.Delete(channel)
		return ""
	}
	return entry.path
}

// Set records the path that reached the channel's player.
func (sm *ShapeMemory) Set(channel, path string) {
	sm.store.Store(channel, &shapeEntry{
		path:      path,
		expiresAt: sm.now().Add(sm.ttl),
	})
}

// Delete forgets a channel (e.g. after the remembered path stopped working).
func (sm *ShapeMemory) Delete(channel string) {
	sm.store.Delete(channel)
}

// Stop terminates the background cleanup goroutine.
func (sm *ShapeMemory) Stop() {
	close(sm.done)
}

// Order returns the paths to try for a channel: the remembered one first,
// then the registry path and the alternate shapes, without duplicates.
func (sm *ShapeMemory) Order(channel, sitePath string) []string {
	paths := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	add := func(p string) {
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	add(sm.Get(channel))
	add(sitePath)
	for _, shape := range alternateShapes {
		add(shape + slugOf(sitePath))
	}
	return paths
}

// cleanupLoop runs every hour, deleting expired entries.
func (sm *ShapeMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-sm.done:
			return
		case <-ticker.C:
			now := sm.now()
			sm.store.Range(func(key, value any) bool {
				entry := value.(*shapeEntry)
				if now.After(entry.expiresAt) {
					sm.store.Delete(key)
				}
				return true
			})
		}
	}
}
