package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/streamgrab/models"
)

// ErrGateBusy is returned by Acquire when the gate stays held for the whole wait.
var ErrGateBusy = errors.New("extraction gate busy")

// Gate admits one browser session at a time.
//
// Every acquisition gets a fresh token. Release only frees the gate when the
// token still matches, so a late release from a holder the watchdog already
// evicted cannot free a newer holder. A gate not touched for longer than
// staleAfter is treated as free.
type Gate struct {
	mu         sync.Mutex
	busy       bool
	since      time.Time
	token      uint64
	staleAfter time.Duration
	now        func() time.Time
	// released is closed and replaced every time the gate becomes free.
	released chan struct{}
}

// NewGate creates a free gate.
func NewGate(staleAfter time.Duration, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		staleAfter: staleAfter,
		now:        now,
		released:   make(chan struct{}),
	}
}

// TryAcquire takes the gate if it is free and returns the holder's token.
func (g *Gate) TryAcquire() (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tryAcquireLocked()
}

func (g *Gate) tryAcquireLocked() (uint64, bool) {
	g.healLocked()
	if g.busy {
		return 0, false
	}
	g.busy = true
	g.since = g.now()
	g.token++
	return g.token, true
}

// Acquire waits up to wait for the gate. It returns ErrGateBusy on expiry and
// the context error if ctx ends first.
func (g *Gate) Acquire(ctx context.Context, wait time.Duration) (uint64, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		g.mu.Lock()
		if tok, ok := g.tryAcquireLocked(); ok {
			g.mu.Unlock()
			return tok, nil
		}
		released := g.released
		g.mu.Unlock()

		select {
		case <-released:
		case <-timer.C:
			if tok, ok := g.TryAcquire(); ok {
				return tok, nil
			}
			return 0, ErrGateBusy
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Release frees the gate if token identifies the current holder. It reports
// whether the gate was freed.
func (g *Gate) Release(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busy || token != g.token {
		return false
	}
	g.freeLocked()
	return true
}

// Touch restarts the staleness clock for the holder of token. It reports
// false when token no longer holds the gate.
func (g *Gate) Touch(token uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.busy || token != g.token {
		return false
	}
	g.since = g.now()
	return true
}

// Reset frees the gate regardless of who holds it.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		slog.Warn("gate reset by operator", "heldFor", g.now().Sub(g.since))
		g.freeLocked()
	}
}

// Stats reports whether the gate is held and since when.
func (g *Gate) Stats() models.GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.healLocked()
	if !g.busy {
		return models.GateStats{}
	}
	since := g.since
	return models.GateStats{Busy: true, BusySince: &since}
}

func (g *Gate) healLocked() {
	if g.busy && g.staleAfter > 0 && g.now().Sub(g.since) > g.staleAfter {
		slog.Warn("gate held past staleness bound, forcing release",
			"heldFor", g.now().Sub(g.since),
			"staleAfter", g.staleAfter,
		)
		g.freeLocked()
	}
}

func (g *Gate) freeLocked() {
	g.busy = false
	g.since = time.Time{}
	close(g.released)
	g.released = make(chan struct{})
}
