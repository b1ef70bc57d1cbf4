package engine

import (
	"sync/atomic"
	"time"
)

// watchdog runs onFire once if it is not stopped within its timeout.
type watchdog struct {
	timer   *time.Timer
	fired   atomic.Bool
	stopped bool // owned by the goroutine that calls Stop
}

// startWatchdog arms a watchdog. A non-positive timeout disables it.
func startWatchdog(timeout time.Duration, onFire func()) *watchdog {
	w := &watchdog{}
	if timeout <= 0 {
		return w
	}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		onFire()
	})
	return w
}

// Stop disarms the watchdog. It reports false when the timer already went
// off, even if onFire has not finished yet.
func (w *watchdog) Stop() bool {
	if w.timer == nil {
		return true
	}
	if w.timer.Stop() {
		w.stopped = true
	}
	return w.stopped
}

// Fired reports whether the watchdog fired.
func (w *watchdog) Fired() bool {
	return w.fired.Load()
}
