package middleware

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"io"
	"net/http"
	"strings"
)

// GRPCWeb translates gRPC-Web requests (including the base64-encoded
// "application/grpc-web-text" variant) into standard gRPC-over-HTTP/2 and
// folds the upstream's trailers back into a trailer frame the browser
// client can parse (spec.md §4.3 "grpcweb.go").
type GRPCWeb struct{}

func NewGRPCWeb() *GRPCWeb { return &GRPCWeb{} }

func (m *GRPCWeb) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/grpc-web") {
		return next(ctx, w, r)
	}
	text := strings.Contains(ct, "text")

	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err == nil {
			if text {
				decoded := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
				n, decErr := base64.StdEncoding.Decode(decoded, body)
				if decErr == nil {
					body = decoded[:n]
				}
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}
	}
	r.Header.Set("Content-Type", strings.Replace(ct, "grpc-web", "grpc", 1))
	r.ProtoMajor = 2
	r.ProtoMinor = 0

	gw := &grpcWebResponseWriter{ResponseWriter: w, text: text}
	err := next(ctx, gw, r)
	gw.flushTrailer()
	return err
}

type grpcWebResponseWriter struct {
	http.ResponseWriter
	text    bool
	started bool
}

func (w *grpcWebResponseWriter) WriteHeader(code int) {
	if !w.started {
		w.started = true
		w.Header().Set("Content-Type", strings.Replace(w.Header().Get("Content-Type"), "grpc", "grpc-web", 1))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *grpcWebResponseWriter) Write(b []byte) (int, error) {
	if w.text {
		enc := base64.StdEncoding.EncodeToString(b)
		return w.ResponseWriter.Write([]byte(enc))
	}
	return w.ResponseWriter.Write(b)
}

// flushTrailer encodes any HTTP trailers set by the upstream as a gRPC-Web
// trailer frame (flag byte 0x80, then length-prefixed "key: value\r\n" pairs)
// appended to the body, since gRPC-Web carries trailers in-band rather than
// as real HTTP trailers.
func (w *grpcWebResponseWriter) flushTrailer() {
	trailer := w.Header()
	var buf bytes.Buffer
	for k, vv := range trailer {
		if !strings.HasPrefix(strings.ToLower(k), "grpc-") {
			continue
		}
		for _, v := range vv {
			buf.WriteString(strings.ToLower(k))
			buf.WriteString(": ")
			buf.WriteString(v)
			buf.WriteString("\r\n")
		}
	}
	if buf.Len() == 0 {
		return
	}
	header := make([]byte, 5)
	header[0] = 0x80
	binary.BigEndian.PutUint32(header[1:], uint32(buf.Len()))
	payload := append(header, buf.Bytes()...)
	if w.text {
		_, _ = w.ResponseWriter.Write([]byte(base64.StdEncoding.EncodeToString(payload)))
		return
	}
	_, _ = w.ResponseWriter.Write(payload)
}
