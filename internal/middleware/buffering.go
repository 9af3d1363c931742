package middleware

import (
	"context"
	"net/http"
)

// BufferingConfig caps request/response body size (spec.md §4.3
// "buffering.go"). A limit of 0 means unlimited.
type BufferingConfig struct {
	MaxRequestBodyBytes  int64
	MaxResponseBodyBytes int64
}

type Buffering struct{ cfg BufferingConfig }

func NewBuffering(cfg BufferingConfig) *Buffering { return &Buffering{cfg: cfg} }

func (m *Buffering) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	if m.cfg.MaxRequestBodyBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, m.cfg.MaxRequestBodyBytes)
	}
	rw := w
	if m.cfg.MaxResponseBodyBytes > 0 {
		rw = &limitedResponseWriter{ResponseWriter: w, limit: m.cfg.MaxResponseBodyBytes}
	}
	return next(ctx, rw, r)
}

type limitedResponseWriter struct {
	http.ResponseWriter
	limit   int64
	written int64
}

func (w *limitedResponseWriter) Write(b []byte) (int, error) {
	if w.written >= w.limit {
		return 0, http.ErrBodyNotAllowed
	}
	remaining := w.limit - w.written
	if int64(len(b)) > remaining {
		b = b[:remaining]
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}
