package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/ratelimit"
)

// RateLimitConfig configures a token-bucket limiter keyed by client IP or by
// router name (spec.md §4.3 "ratelimit.go").
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	KeyBy             string // "clientIP" | "router"
	RouterName        string
}

type RateLimit struct {
	cfg     RateLimitConfig
	limiter *ratelimit.Limiter
}

func NewRateLimit(cfg RateLimitConfig, limiter *ratelimit.Limiter) *RateLimit {
	return &RateLimit{cfg: cfg, limiter: limiter}
}

func (m *RateLimit) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	if m.cfg.Burst == 0 {
		m.reject(w)
		return nil
	}
	key := m.cfg.RouterName
	if m.cfg.KeyBy != "router" {
		key = clientIP(r)
	}
	if !m.limiter.Allow(key, m.cfg.RequestsPerSecond, m.cfg.Burst) {
		m.reject(w)
		return nil
	}
	return next(ctx, w, r)
}

func (m *RateLimit) reject(w http.ResponseWriter) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(m.cfg.RequestsPerSecond)))
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// retryAfterSeconds estimates how long a client must wait for the bucket to
// refill one token, rounded up to whole seconds per the Retry-After header's
// grammar (RFC 9110 §10.2.3 allows either a date or a delta-seconds integer).
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 1
	}
	seconds := int(math.Ceil(1 / rps))
	if seconds < 1 {
		return 1
	}
	return seconds
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
