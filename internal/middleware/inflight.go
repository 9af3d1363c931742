package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
)

// InflightConfig caps the number of concurrent requests a router admits
// (spec.md §4.3 "inflight.go").
type InflightConfig struct {
	Amount int64
}

type Inflight struct {
	cfg     InflightConfig
	current atomic.Int64
}

func NewInflight(cfg InflightConfig) *Inflight {
	return &Inflight{cfg: cfg}
}

func (m *Inflight) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	if m.cfg.Amount <= 0 {
		return next(ctx, w, r)
	}
	if m.current.Add(1) > m.cfg.Amount {
		m.current.Add(-1)
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return nil
	}
	defer m.current.Add(-1)
	return next(ctx, w, r)
}
