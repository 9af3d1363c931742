package proxy

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/accesslog"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/middleware"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/router"
)

// Revision is the slice of a reload.Compiled a Server needs to dispatch
// one entry point's traffic: the HTTP router table and the per-router
// chains reload built against it. Kept separate from reload.Compiled
// itself so internal/proxy never needs to import internal/reload.
type Revision struct {
	Table  *router.Table
	Chains map[string]middleware.Handler
}

// Server is the http.Handler bound to one entry point. Its current
// Revision is swapped atomically by whatever publishes reload.Compiled
// values (cmd/trafficcop), the same way the teacher's Gateway swapped its
// GatewayState under a RWMutex — here via an atomic.Pointer instead, since
// the teacher's lock only ever guarded a simple pointer assignment anyway.
type Server struct {
	entryPoint string
	current    *atomicRevision
	accessLog  *accesslog.Logger
	metrics    *metrics.Registry
}

func NewServer(entryPoint string, accessLog *accesslog.Logger, m *metrics.Registry) *Server {
	return &Server{entryPoint: entryPoint, current: newAtomicRevision(), accessLog: accessLog, metrics: m}
}

func (s *Server) Publish(rev *Revision) { s.current.Store(rev) }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rev := s.current.Load()
	if rev == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	lw := &loggingResponseWriter{ResponseWriter: w}

	req := &model.Request{
		Host:     r.Host,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Method:   r.Method,
		Headers:  r.Header,
		ClientIP: clientIP(r),
	}

	route := rev.Table.Match(s.entryPoint, req)
	if route == nil {
		http.NotFound(lw, r)
		s.logAndObserve(lw, r, start, "", "")
		return
	}

	chain, ok := rev.Chains[route.Name]
	if !ok {
		http.Error(lw, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		s.logAndObserve(lw, r, start, route.Name, route.Service)
		return
	}

	// WebSocket upgrades and gRPC calls both ride the same chain and the
	// same terminator RoundTrip; terminator.go detects a 101 response and
	// splices the hijacked connection, and flushes per-write when the
	// upstream declares an application/grpc content type.
	_ = chain(r.Context(), lw, r)
	s.logAndObserve(lw, r, start, route.Name, route.Service)
}

func (s *Server) logAndObserve(lw *loggingResponseWriter, r *http.Request, start time.Time, router, service string) {
	status := lw.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	duration := time.Since(start)

	if s.accessLog != nil {
		s.accessLog.Log(accesslog.Entry{
			Time:         start,
			Method:       r.Method,
			Path:         r.URL.Path,
			Protocol:     r.Proto,
			Status:       status,
			DurationMS:   duration.Milliseconds(),
			RemoteIP:     r.RemoteAddr,
			UserAgent:    r.UserAgent(),
			Referer:      r.Referer(),
			Router:       router,
			Service:      service,
			BytesWritten: lw.bytes,
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveRequest(router, service, r.Method, strconv.Itoa(status), duration.Seconds())
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack delegates to the underlying ResponseWriter so WebSocket and other
// protocol-upgrade responses can bypass this wrapper's buffering entirely.
func (w *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("proxy: underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}
