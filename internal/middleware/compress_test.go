package middleware

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func writeBody(w http.ResponseWriter, ct string, body string) error {
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte(body))
	return err
}

func TestCompress_GzipsWhenAccepted(t *testing.T) {
	m := NewCompress(CompressConfig{MinSize: 1})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	err := m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return writeBody(w, "text/plain", strings.Repeat("a", 2000))
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("want gzip encoding, got %q", rec.Header().Get("Content-Encoding"))
	}
	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != strings.Repeat("a", 2000) {
		t.Fatal("want round-tripped body to match the original")
	}
}

func TestCompress_NoAcceptEncodingSkipsCompression(t *testing.T) {
	m := NewCompress(CompressConfig{MinSize: 1})
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return writeBody(w, "text/plain", "hello")
	})
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatal("want no Content-Encoding without an Accept-Encoding header")
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("want uncompressed body, got %q", rec.Body.String())
	}
}

func TestCompress_ExcludedContentTypeSkipsCompression(t *testing.T) {
	m := NewCompress(CompressConfig{MinSize: 1, ExcludedTypes: []string{"image/"}})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return writeBody(w, "image/png", "binarydata")
	})
	if rec.Header().Get("Content-Encoding") != "" {
		t.Fatal("want excluded content type left uncompressed")
	}
}

func TestCompress_NegotiatesPreferredEncoding(t *testing.T) {
	cases := map[string]string{
		"gzip":            "gzip",
		"br":               "br",
		"zstd":            "zstd",
		"gzip, br, zstd":  "zstd",
		"identity":        "",
	}
	for accept, want := range cases {
		if got := negotiate(accept); got != want {
			t.Errorf("negotiate(%q): want %q, got %q", accept, want, got)
		}
	}
}
