package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
}

// Memory is a single-process limiter. State is lost on restart and not shared
// between replicas; use Redis for that.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*window
	max     int
	window  time.Duration
	now     func() time.Time
}

func NewMemory(max int, win time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]*window),
		max:     max,
		window:  win,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Call before first use.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.entries[key]
	if !ok || now.After(w.start.Add(m.window)) {
		w = &window{count: 1, start: now}
		m.entries[key] = w
		return m.decision(true, w, now), nil
	}
	if w.count >= m.max {
		return m.decision(false, w, now), nil
	}
	w.count++
	return m.decision(true, w, now), nil
}

func (m *Memory) decision(allowed bool, w *window, now time.Time) Decision {
	remaining := m.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	reset := w.start.Add(m.window).Sub(now)
	if reset < 0 {
		reset = 0
	}
	return Decision{Allowed: allowed, Limit: m.max, Remaining: remaining, Reset: reset}
}

// Sweep drops entries whose window has fully elapsed and returns how many it removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, w := range m.entries {
		if now.After(w.start.Add(m.window)) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

var _ Limiter = (*Memory)(nil)
