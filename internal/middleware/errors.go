package middleware

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ErrorsConfig substitutes a configured status range with a sub-fetch to a
// service, templating {status} into the request path (spec.md §4.3
// "errors.go").
type ErrorsConfig struct {
	StatusMin   int
	StatusMax   int
	QueryTemplate string // e.g. "/errors/{status}.html"
	Address       string
}

type Errors struct {
	cfg       ErrorsConfig
	transport http.RoundTripper
}

func NewErrors(cfg ErrorsConfig, transport http.RoundTripper) *Errors {
	return &Errors{cfg: cfg, transport: transport}
}

func (m *Errors) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	cw := newRetryableResponseWriter()
	err := next(ctx, cw, r)
	if err != nil || cw.statusCode < m.cfg.StatusMin || cw.statusCode > m.cfg.StatusMax {
		cw.flushTo(w)
		return err
	}

	path := strings.ReplaceAll(m.cfg.QueryTemplate, "{status}", strconv.Itoa(cw.statusCode))
	sub, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Address+path, nil)
	if reqErr != nil {
		cw.flushTo(w)
		return nil
	}
	resp, rtErr := m.transport.RoundTrip(sub)
	if rtErr != nil {
		cw.flushTo(w)
		return nil
	}
	defer resp.Body.Close()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(cw.statusCode)
	_, _ = io.Copy(w, resp.Body)
	return nil
}
