package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/health"
)

// CircuitBreaker is a thin adapter over internal/health's breaker state
// machine: while Open it returns 503 immediately instead of dispatching
// (spec.md §4.3 "circuitbreaker.go", §4.5).
type CircuitBreaker struct {
	breaker          *health.Breaker
	fallbackDuration int // seconds, for Retry-After
}

func NewCircuitBreaker(breaker *health.Breaker, fallbackDurationSeconds int) *CircuitBreaker {
	return &CircuitBreaker{breaker: breaker, fallbackDuration: fallbackDurationSeconds}
}

func (m *CircuitBreaker) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	if m.breaker.State() == health.BreakerOpen {
		if m.fallbackDuration > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(m.fallbackDuration))
		}
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return nil
	}
	err := next(ctx, w, r)
	if m.breaker.State() == health.BreakerHalfOpen {
		m.breaker.RecordProbe(err == nil)
	}
	return err
}
