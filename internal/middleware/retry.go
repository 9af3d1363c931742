package middleware

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryConfig configures exponential-backoff retries of idempotent requests
// on connect errors or 5xx responses (spec.md §4.3 "retry.go"). GET, HEAD,
// OPTIONS, PUT and DELETE are retried; POST, PATCH and any other method are
// sent exactly once, with no retry even when the failure happened before
// any bytes reached the upstream.
type RetryConfig struct {
	Attempts     int
	InitialDelay time.Duration
}

var idempotentMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
}

// retryableResponseWriter buffers headers/status so a failed attempt can be
// discarded and retried without corrupting the real ResponseWriter.
type retryableResponseWriter struct {
	header     http.Header
	statusCode int
	body       bytes.Buffer
}

func newRetryableResponseWriter() *retryableResponseWriter {
	return &retryableResponseWriter{header: make(http.Header)}
}

func (w *retryableResponseWriter) Header() http.Header { return w.header }
func (w *retryableResponseWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
func (w *retryableResponseWriter) WriteHeader(code int)        { w.statusCode = code }

func (w *retryableResponseWriter) flushTo(real http.ResponseWriter) {
	dst := real.Header()
	for k, vv := range w.header {
		dst[k] = vv
	}
	if w.statusCode != 0 {
		real.WriteHeader(w.statusCode)
	}
	_, _ = real.Write(w.body.Bytes())
}

type Retry struct{ cfg RetryConfig }

func NewRetry(cfg RetryConfig) *Retry {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	return &Retry{cfg: cfg}
}

func (m *Retry) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	if !idempotentMethods[r.Method] || m.cfg.Attempts <= 1 {
		return next(ctx, w, r)
	}

	var bodyBytes []byte
	if r.Body != nil {
		bodyBytes, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
	}

	var lastErr error
	for attempt := 0; attempt < m.cfg.Attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(m.cfg.InitialDelay) * math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		buf := newRetryableResponseWriter()
		err := next(ctx, buf, r)
		if err == nil && buf.statusCode < 500 {
			buf.flushTo(w)
			return nil
		}
		lastErr = err
		if attempt == m.cfg.Attempts-1 {
			buf.flushTo(w)
			return lastErr
		}
	}
	return lastErr
}
