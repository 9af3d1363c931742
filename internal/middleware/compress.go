package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// CompressConfig negotiates response compression (spec.md §4.3
// "compress.go"): zstd and brotli are preferred over gzip when the client
// advertises them, matching the order Accept-Encoding is usually sent in
// by modern clients.
type CompressConfig struct {
	MinSize       int // skip compressing bodies smaller than this
	ExcludedTypes []string
}

type Compress struct{ cfg CompressConfig }

func NewCompress(cfg CompressConfig) *Compress {
	if cfg.MinSize <= 0 {
		cfg.MinSize = 1024
	}
	return &Compress{cfg: cfg}
}

func (m *Compress) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	accept := r.Header.Get("Accept-Encoding")
	enc := negotiate(accept)
	if enc == "" {
		return next(ctx, w, r)
	}
	cw := &compressingWriter{ResponseWriter: w, enc: enc, cfg: m.cfg}
	defer cw.Close()
	return next(ctx, cw, r)
}

func negotiate(acceptEncoding string) string {
	lower := strings.ToLower(acceptEncoding)
	switch {
	case strings.Contains(lower, "zstd"):
		return "zstd"
	case strings.Contains(lower, "br"):
		return "br"
	case strings.Contains(lower, "gzip"):
		return "gzip"
	default:
		return ""
	}
}

// compressingWriter wraps the real ResponseWriter, deferring the choice of
// whether to compress at all until WriteHeader tells us the content type
// and this middleware's MinSize/ExcludedTypes can be checked. MinSize is
// compared against a declared Content-Length only; a response without one
// is compressed whatever its size.
type compressingWriter struct {
	http.ResponseWriter
	enc       string
	cfg       CompressConfig
	started   bool
	skip      bool
	encoder   io.WriteCloser
}

func (cw *compressingWriter) WriteHeader(code int) {
	cw.decide()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *compressingWriter) decide() {
	if cw.started {
		return
	}
	cw.started = true
	ct := cw.Header().Get("Content-Type")
	for _, excl := range cw.cfg.ExcludedTypes {
		if strings.HasPrefix(ct, excl) {
			cw.skip = true
			return
		}
	}
	if cl, err := strconv.Atoi(cw.Header().Get("Content-Length")); err == nil && cl < cw.cfg.MinSize {
		cw.skip = true
		return
	}
	if cw.Header().Get("Content-Encoding") != "" {
		cw.skip = true
		return
	}
	cw.Header().Set("Content-Encoding", cw.enc)
	cw.Header().Del("Content-Length")
	cw.Header().Add("Vary", "Accept-Encoding")
	switch cw.enc {
	case "gzip":
		cw.encoder, _ = gzip.NewWriterLevel(cw.ResponseWriter, gzip.DefaultCompression)
	case "br":
		cw.encoder = brotli.NewWriter(cw.ResponseWriter)
	case "zstd":
		zw, _ := zstd.NewWriter(cw.ResponseWriter)
		cw.encoder = zw
	}
}

func (cw *compressingWriter) Write(b []byte) (int, error) {
	cw.decide()
	if cw.skip || cw.encoder == nil {
		return cw.ResponseWriter.Write(b)
	}
	return cw.encoder.Write(b)
}

func (cw *compressingWriter) Close() error {
	if cw.encoder != nil {
		return cw.encoder.Close()
	}
	return nil
}

func (cw *compressingWriter) Flush() {
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
