package middleware

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ForwardAuthConfig dispatches a sub-request to an external authorization
// service via the connection pool; a 2xx response allows the real request
// through and copies the configured response headers onto it, anything
// else is surfaced verbatim to the client (spec.md §4.3 "forwardauth.go").
// The sub-request is sent once per request: ForwardAuth has no retry
// policy of its own, and a failed RoundTrip is answered with 502.
type ForwardAuthConfig struct {
	Address             string
	TrustForwardHeader  bool
	AuthResponseHeaders []string
	Timeout             time.Duration
}

type ForwardAuth struct {
	cfg       ForwardAuthConfig
	transport http.RoundTripper
}

func NewForwardAuth(cfg ForwardAuthConfig, transport http.RoundTripper) *ForwardAuth {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &ForwardAuth{cfg: cfg, transport: transport}
}

func (m *ForwardAuth) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	authReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Address, nil)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return nil
	}
	if m.cfg.TrustForwardHeader {
		authReq.Header = r.Header.Clone()
	}
	authReq.Header.Set("X-Forwarded-Method", r.Method)
	authReq.Header.Set("X-Forwarded-Uri", r.URL.RequestURI())
	authReq.Header.Set("X-Forwarded-Host", r.Host)

	resp, err := m.transport.RoundTrip(authReq)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		for k, vv := range resp.Header {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return nil
	}
	for _, h := range m.cfg.AuthResponseHeaders {
		if v := resp.Header.Get(h); v != "" {
			r.Header.Set(h, v)
		}
	}
	return next(ctx, w, r)
}
