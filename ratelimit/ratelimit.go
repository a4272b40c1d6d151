// Package ratelimit provides fixed-window point budgets keyed by an
// arbitrary string such as a remote address or a connection id.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter grants at most a fixed number of points per key per window.
type Limiter interface {
	// Allow consumes one point for key and reports whether it was available.
	Allow(ctx context.Context, key string) bool
	// Release forgets all state held for key.
	Release(ctx context.Context, key string)
}

type Config struct {
	Points int
	Window time.Duration
}

type bucket struct {
	remaining int
	start     time.Time
}

// Window is an in-memory fixed-window limiter. A key's window opens on its
// first consume and the budget refills to capacity once the window has
// fully elapsed.
type Window struct {
	mu      sync.Mutex
	clock   clock.Clock
	points  int
	window  time.Duration
	buckets map[string]*bucket
}

func NewWindow(clk clock.Clock, cfg Config) *Window {
	if clk == nil {
		clk = clock.New()
	}
	return &Window{
		clock:   clk,
		points:  cfg.Points,
		window:  cfg.Window,
		buckets: make(map[string]*bucket),
	}
}

func (w *Window) Allow(_ context.Context, key string) bool {
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.buckets[key]
	if !ok || now.Sub(b.start) >= w.window {
		b = &bucket{remaining: w.points, start: now}
		w.buckets[key] = b
	}
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (w *Window) Release(_ context.Context, key string) {
	w.mu.Lock()
	delete(w.buckets, key)
	w.mu.Unlock()
}

// Sweep drops keys whose window has elapsed. They would be reset on their
// next consume anyway.
func (w *Window) Sweep() int {
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, b := range w.buckets {
		if now.Sub(b.start) >= w.window {
			delete(w.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys currently hold state.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buckets)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (w *Window) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := w.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}
