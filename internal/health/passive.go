// Package health implements the active and passive health-checking machinery
// of spec.md §4.7: a passive failure tracker consulted on every proxied
// response, a cron-scheduled active prober, and a per-service circuit
// breaker. Both feed the same per-server ServerState internal/state exposes
// to internal/lb through the HealthView interface.
package health

import (
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
	defaultSkipDuration     = 10 * time.Second
)

// passiveEntry is one server's rolling failure/backoff state.
type passiveEntry struct {
	consecFailures  int
	consecSuccesses int
	skipUntil       time.Time
}

// PassiveTracker records per-request outcomes and derives short-lived
// ejections from consecutive failures, the same "skip until" backoff the
// teacher's original smooth-WRR balancer kept inline.
type PassiveTracker struct {
	mu               sync.Mutex
	entries          map[string]*passiveEntry
	failureThreshold int
	successThreshold int
	skipDuration     time.Duration
	now              func() time.Time
}

func NewPassiveTracker(failureThreshold, successThreshold int, skipDuration time.Duration) *PassiveTracker {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if successThreshold <= 0 {
		successThreshold = defaultSuccessThreshold
	}
	if skipDuration <= 0 {
		skipDuration = defaultSkipDuration
	}
	return &PassiveTracker{
		entries:          make(map[string]*passiveEntry),
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		skipDuration:     skipDuration,
		now:              time.Now,
	}
}

// RecordResult updates serverID's rolling counters. success is true for any
// response the caller doesn't consider a proxy-level failure (2xx-4xx are
// successes from the proxy's point of view; 5xx and dial/timeout errors are
// not).
func (t *PassiveTracker) RecordResult(serverID string, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[serverID]
	if !ok {
		e = &passiveEntry{}
		t.entries[serverID] = e
	}
	if success {
		e.consecFailures = 0
		e.consecSuccesses++
		if e.consecSuccesses >= t.successThreshold {
			e.skipUntil = time.Time{}
		}
		return
	}
	e.consecSuccesses = 0
	e.consecFailures++
	if e.consecFailures >= t.failureThreshold {
		e.skipUntil = t.now().Add(t.skipDuration)
	}
}

// Eligible reports whether serverID is outside its passive-failure skip
// window. Servers with no recorded history are always eligible.
func (t *PassiveTracker) Eligible(serverID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[serverID]
	if !ok {
		return true
	}
	if e.skipUntil.IsZero() {
		return true
	}
	return t.now().After(e.skipUntil)
}

// Reset clears serverID's tracked state, used when a reload drops and
// re-adds the same server identity.
func (t *PassiveTracker) Reset(serverID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, serverID)
}
