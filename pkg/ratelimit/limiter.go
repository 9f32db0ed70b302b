// Package ratelimit tracks the request cost spent by each author inside a
// rolling window.
package ratelimit

import (
	"slices"
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

const DefaultWindow = time.Minute

// Limiter keeps one counter per author. Every unit added to a counter is
// released exactly once: a window after it was added, or earlier when it is
// refunded.
type Limiter struct {
	mu       sync.Mutex
	counters map[int64]int
	window   time.Duration
	pending  map[int64][]*release
	stopped  bool
}

// release is a scheduled decrement of one author's counter. units shrinks
// when part of the admission is refunded.
type release struct {
	units int
	timer *time.Timer
}

type Option func(*Limiter)

// WithWindow changes how long an admitted cost stays charged.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		l.window = window
	}
}

func New(options ...Option) *Limiter {
	l := &Limiter{
		counters: make(map[int64]int),
		pending:  make(map[int64][]*release),
		window:   DefaultWindow,
	}
	for _, option := range options {
		option(l)
	}
	return l
}

// Admit charges cost to author. It returns false once the counter reaches
// limit; the counter is then clamped to limit and the rest of the batch must
// be abandoned by the caller.
func (l *Limiter) Admit(author int64, cost, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.counters[author]
	current := previous + cost
	if current >= limit {
		l.counters[author] = limit
		if delta := limit - previous; delta > 0 {
			l.schedule(author, delta)
		}
		return false
	}

	l.counters[author] = current
	l.schedule(author, cost)
	return true
}

// Charge adds extra cost without checking the limit. Negative values refund
// the most recent admissions immediately and shrink their pending releases.
func (l *Limiter) Charge(author int64, cost int) {
	if cost == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cost < 0 {
		l.refund(author, -cost)
		return
	}
	l.counters[author] += cost
	l.schedule(author, cost)
}

// Cost returns the amount currently charged to author.
func (l *Limiter) Cost(author int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters[author]
}

// Len returns the number of tracked authors.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// Stop cancels every pending release.
func (l *Limiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	for _, releases := range l.pending {
		for _, rel := range releases {
			rel.timer.Stop()
		}
	}
	clear(l.pending)
}

func (l *Limiter) schedule(author int64, cost int) {
	if l.stopped {
		return
	}

	rel := &release{units: cost}
	rel.timer = time.AfterFunc(l.window, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.forget(author, rel) {
			l.decrease(author, rel.units)
		}
	})
	l.pending[author] = append(l.pending[author], rel)
}

// refund must be called with the lock held.
func (l *Limiter) refund(author int64, units int) {
	l.decrease(author, units)

	releases := l.pending[author]
	for i := len(releases) - 1; i >= 0 && units > 0; i-- {
		rel := releases[i]
		taken := min(rel.units, units)
		rel.units -= taken
		units -= taken
		if rel.units == 0 {
			rel.timer.Stop()
			l.forget(author, rel)
		}
	}
}

// forget drops rel from the pending releases of author and reports whether
// it was still pending. It must be called with the lock held.
func (l *Limiter) forget(author int64, rel *release) bool {
	releases := l.pending[author]
	i := slices.Index(releases, rel)
	if i < 0 {
		return false
	}
	releases = slices.Delete(releases, i, i+1)
	if len(releases) == 0 {
		delete(l.pending, author)
	} else {
		l.pending[author] = releases
	}
	return true
}

// decrease must be called with the lock held.
func (l *Limiter) decrease(author int64, cost int) {
	current, ok := l.counters[author]
	if !ok {
		return
	}

	current = clamp(current-cost, 0, current)
	if current < 1 {
		delete(l.counters, author)
		return
	}
	l.counters[author] = current
}

func clamp[T constraints.Integer](v, low, high T) T {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
