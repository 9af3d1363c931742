// Package ratelimit implements the per-node token bucket buckets
// middleware.RateLimit keys by client IP or router name (spec.md §4.3).
// Buckets are created lazily on first use and their rate/burst are kept in
// sync with whatever the current config revision asks for, so a reload
// that changes a router's limit takes effect without dropping the bucket's
// accumulated state.
package ratelimit

import (
	"sync"
	"time"

	ratelib "golang.org/x/time/rate"
)

// bucket pairs a token bucket limiter with the last time a request touched
// it, so Prune can find buckets a since-removed router or departed client
// will never reference again.
type bucket struct {
	limiter    *ratelib.Limiter
	lastAccess time.Time
}

// Limiter manages one token bucket per rate-limit key. A key is whatever
// middleware.RateLimit.Process derives it to be: a client IP for
// KeyBy=clientIP, or a router name for KeyBy=router.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// NewLimiter creates and returns a new Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
	}
}

// Allow checks if a request is allowed for the given key, updating the
// bucket's configuration (rps/burst) if it has changed since the last call
// — a reload can change a router's limits without this key's bucket losing
// its accumulated tokens.
func (l *Limiter) Allow(key string, rps float64, burst int) bool {
	now := time.Now()
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		b, ok = l.buckets[key]
		if !ok {
			b = &bucket{limiter: ratelib.NewLimiter(ratelib.Limit(rps), burst)}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	if b.limiter.Limit() != ratelib.Limit(rps) {
		b.limiter.SetLimit(ratelib.Limit(rps))
	}
	if b.limiter.Burst() != burst {
		b.limiter.SetBurst(burst)
	}

	l.mu.Lock()
	b.lastAccess = now
	l.mu.Unlock()

	return b.limiter.Allow()
}

// Remove removes the bucket for the given key.
func (l *Limiter) Remove(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Prune drops every bucket whose key hasn't been touched in at least
// idleFor, so per-client-IP buckets for clients that stopped sending
// traffic don't accumulate forever. Safe to call periodically from its own
// goroutine; cmd/trafficcop runs it on a fixed interval alongside the
// active health checker.
func (l *Limiter) Prune(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
			pruned++
		}
	}
	return pruned
}

// Len reports how many distinct keys currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}
