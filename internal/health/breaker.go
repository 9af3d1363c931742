package health

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current disposition toward a
// service (spec.md §4.7 "Circuit breaker").
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker evaluates a service's rolling error/latency metrics against a
// threshold on a fixed check period and flips Closed -> Open -> HalfOpen ->
// Closed. The expression itself (spec.md's LatencyAtQuantileMS/NetworkErrorRatio
// grammar) is evaluated by the caller; Breaker only owns the state machine
// and timers, mirroring the teacher's skipUntil backoff one layer up.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	openedAt         time.Time
	fallbackDuration time.Duration
	recoveryDuration time.Duration
	halfOpenProbes   int
	probesSeen       int
	probesOK         int
	now              func() time.Time
}

func NewBreaker(cfg FallbackConfig) *Breaker {
	probes := cfg.HalfOpenProbes
	if probes <= 0 {
		probes = 1
	}
	return &Breaker{
		state:            BreakerClosed,
		fallbackDuration: cfg.FallbackDuration,
		recoveryDuration: cfg.RecoveryDuration,
		halfOpenProbes:   probes,
		now:              time.Now,
	}
}

// FallbackConfig is the subset of model.CircuitBreakerConfig the state
// machine needs; the expression string and check period live with the
// caller that decides WHEN to call Evaluate.
type FallbackConfig struct {
	FallbackDuration time.Duration
	RecoveryDuration time.Duration
	HalfOpenProbes   int
}

// Evaluate is called once per check period with whether the breaker's guard
// expression currently tripped. It returns the resulting state.
func (b *Breaker) Evaluate(tripped bool) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		if tripped {
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.fallbackDuration {
			b.state = BreakerHalfOpen
			b.probesSeen, b.probesOK = 0, 0
		}
	case BreakerHalfOpen:
		if tripped {
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
	}
	return b.state
}

// RecordProbe feeds one half-open trial result; once halfOpenProbes trials
// all succeed the breaker closes, and a single failure reopens it.
func (b *Breaker) RecordProbe(success bool) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != BreakerHalfOpen {
		return b.state
	}
	if !success {
		b.state = BreakerOpen
		b.openedAt = b.now()
		return b.state
	}
	b.probesSeen++
	b.probesOK++
	if b.probesSeen >= b.halfOpenProbes {
		b.state = BreakerClosed
	}
	return b.state
}

// State returns the current state without mutating it.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ServingFallback reports whether the breaker is Open. CircuitBreakerConfig
// has no fallback target of its own, and internal/reload does not route
// Open or HalfOpen states to a Failover sibling.
func (b *Breaker) ServingFallback() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == BreakerOpen
}
