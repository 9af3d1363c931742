package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBuffering_LimitsRequestBody(t *testing.T) {
	m := NewBuffering(BufferingConfig{MaxRequestBodyBytes: 4})
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString("too-long-body"))
	rec := httptest.NewRecorder()
	var readErr error
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		_, readErr = io.ReadAll(r.Body)
		return nil
	})
	if readErr == nil {
		t.Fatal("want reading past the limit to error")
	}
}

func TestBuffering_LimitsResponseBody(t *testing.T) {
	m := NewBuffering(BufferingConfig{MaxResponseBodyBytes: 4})
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		_, _ = w.Write([]byte("way-too-long"))
		return nil
	})
	if rec.Body.Len() > 4 {
		t.Fatalf("want response truncated to 4 bytes, got %d", rec.Body.Len())
	}
}

func TestBuffering_ZeroLimitsAreUnlimited(t *testing.T) {
	m := NewBuffering(BufferingConfig{})
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString("anything"))
	rec := httptest.NewRecorder()
	var body string
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte("anything-back"))
		return nil
	})
	if body != "anything" {
		t.Fatalf("want unrestricted request body, got %q", body)
	}
	if rec.Body.String() != "anything-back" {
		t.Fatalf("want unrestricted response body, got %q", rec.Body.String())
	}
}
