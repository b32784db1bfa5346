package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by caller identity.
//
// Only accepted requests consume budget: a rejected request leaves the
// window untouched, so a caller hammering a full window does not push
// their own recovery further away. This is a deliberate policy choice
// for checkout traffic, where the goal is capping successful work, not
// punishing retries.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string][]time.Time

	stopGC chan struct{}
	gcDone chan struct{}
}

// NewLimiter creates a sliding-window limiter allowing limit accepted
// requests per window per key. A background sweeper drops keys whose
// timestamps have all aged out.
func NewLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		entries: make(map[string][]time.Time),
		stopGC:  make(chan struct{}),
		gcDone:  make(chan struct{}),
	}
	go l.gc()
	return l
}

// Allow reports whether the request identified by key may proceed. When it
// may not, retryAfter is the time until the oldest in-window timestamp ages
// out, i.e. the earliest instant a retry could succeed.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.entries[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.limit {
		l.entries[key] = live
		return false, live[0].Sub(cutoff)
	}

	l.entries[key] = append(live, now)
	return true, 0
}

// gc periodically removes keys with no live timestamps so idle callers do
// not accumulate map entries forever.
func (l *Limiter) gc() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	defer close(l.gcDone)

	for {
		select {
		case <-l.stopGC:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for key, stamps := range l.entries {
				if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the background sweeper.
func (l *Limiter) Close() error {
	close(l.stopGC)
	<-l.gcDone
	return nil
}
