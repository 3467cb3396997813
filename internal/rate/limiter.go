package rate

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Limiter implements a sliding window rate limiter. One instance
// guards one websocket connection's inbound requests.
type Limiter struct {
	window  time.Duration // time window
	limit   int           // requests limit
	history []time.Time   // requests timestamp history
	mu      sync.Mutex
	clock   clock.Clock
}

func NewLimiter(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window: window,
		limit:  limit,
		clock:  clock.New(),
	}
}

func NewLimiterWithClock(window time.Duration, limit int, clock clock.Clock) *Limiter {
	return &Limiter{
		window: window,
		limit:  limit,
		clock:  clock,
	}
}

// Allow checks if a request is allowed to be processed.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.history = l.slide(now)

	if len(l.history) >= l.limit {
		return false
	}

	l.history = append(l.history, now)

	return true
}

func (l *Limiter) slide(now time.Time) []time.Time {
	window := now.Add(-l.window)
	i := 0
	for i < len(l.history) && l.history[i].Before(window) {
		i++
	}
	return append(l.history[:0:0], l.history[i:]...)
}

// Slots returns how many requests remain in the current window.
func (l *Limiter) Slots() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	return l.limit - len(l.slide(now))
}
