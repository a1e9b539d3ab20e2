package core

import "time"

// rateLimiter is a fixed one-minute window counter owned by the hub goroutine.
type rateLimiter struct {
	limit   int
	counter int
	resetAt time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{limit: limit}
}

func (r *rateLimiter) allow(now time.Time) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	if r.resetAt.IsZero() || !now.Before(r.resetAt) {
		r.counter = 0
		r.resetAt = now.Add(time.Minute)
	}
	r.counter++
	return r.counter <= r.limit
}
