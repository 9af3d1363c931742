package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig adds/removes/overwrites request and response headers, and
// optionally answers CORS preflight requests directly (spec.md §4.3
// "headers.go").
type HeadersConfig struct {
	CustomRequestHeaders  map[string]string
	CustomResponseHeaders map[string]string
	RequestHeadersToRemove  []string
	ResponseHeadersToRemove []string

	AccessControlAllowMethods []string
	AccessControlAllowOrigin  string
	AccessControlAllowHeaders []string
	AccessControlMaxAge       int
	AddVaryOrigin             bool
}

type Headers struct{ cfg HeadersConfig }

func NewHeaders(cfg HeadersConfig) *Headers { return &Headers{cfg: cfg} }

func (m *Headers) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	for k, v := range m.cfg.CustomRequestHeaders {
		if v == "" {
			r.Header.Del(k)
			continue
		}
		r.Header.Set(k, v)
	}
	for _, k := range m.cfg.RequestHeadersToRemove {
		r.Header.Del(k)
	}

	if r.Method == http.MethodOptions && m.cfg.AccessControlAllowOrigin != "" {
		m.writeCORS(w.Header(), r)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	if m.cfg.AccessControlAllowOrigin != "" {
		m.writeCORS(w.Header(), r)
	}
	for k, v := range m.cfg.CustomResponseHeaders {
		if v == "" {
			w.Header().Del(k)
			continue
		}
		w.Header().Set(k, v)
	}
	for _, k := range m.cfg.ResponseHeadersToRemove {
		w.Header().Del(k)
	}
	return next(ctx, w, r)
}

func (m *Headers) writeCORS(h http.Header, r *http.Request) {
	h.Set("Access-Control-Allow-Origin", m.cfg.AccessControlAllowOrigin)
	if len(m.cfg.AccessControlAllowMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(m.cfg.AccessControlAllowMethods, ", "))
	}
	if len(m.cfg.AccessControlAllowHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(m.cfg.AccessControlAllowHeaders, ", "))
	}
	if m.cfg.AccessControlMaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(m.cfg.AccessControlMaxAge))
	}
	if m.cfg.AddVaryOrigin {
		h.Add("Vary", "Origin")
	}
}
