package proxy

import (
	"net/http"
	"strings"
)

// isGRPCResponse reports whether resp carries gRPC framing, in which case
// the caller must flush after every chunk instead of once at the end —
// gRPC streams trickle messages over a single long-lived response body and
// a client blocked on Recv never sees them behind net/http's default
// buffering.
func isGRPCResponse(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/grpc")
}

// flushWriter flushes the underlying ResponseWriter after every Write,
// trading batching efficiency for the low latency gRPC streaming needs.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	f, _ := w.(http.Flusher)
	return &flushWriter{w: w, f: f}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil {
		fw.f.Flush()
	}
	return n, err
}
