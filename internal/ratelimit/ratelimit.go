// Package ratelimit implements per-user sliding-window admission control.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits up to maxRequests per user id within a trailing window.
// Windows are created lazily on a user's first request and only retain
// timestamps still inside the window, so memory stays bounded by actual
// traffic. Safe for concurrent use; the check-and-record step is a single
// critical section so two simultaneous requests from the same user cannot
// both slip under the limit.
type Limiter struct {
	maxRequests int
	period      time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time

	// now is the clock, swappable in tests.
	now func() time.Time
}

// New creates a limiter allowing maxRequests per period for each user id.
func New(maxRequests int, period time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		period:      period,
		windows:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Admit reports whether a request from userID may proceed. An admitted
// request is recorded against the window; a rejected one is not, so a
// user hammering the limit does not push their window forward.
func (l *Limiter) Admit(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.period)

	window := l.windows[userID]

	// Timestamps are appended in order, so a prefix trim discards
	// everything that has aged out.
	trim := 0
	for trim < len(window) && window[trim].Before(cutoff) {
		trim++
	}
	window = window[trim:]

	if len(window) >= l.maxRequests {
		l.windows[userID] = window
		return false
	}

	l.windows[userID] = append(window, now)
	return true
}
