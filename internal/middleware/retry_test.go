package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	m := NewRetry(RetryConfig{Attempts: 3, InitialDelay: time.Millisecond})
	var calls atomic.Int32
	next := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		return nil
	}
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, httptest.NewRequest("GET", "/", nil), next)
	if calls.Load() != 1 {
		t.Fatalf("want a single attempt on success, got %d", calls.Load())
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func TestRetry_RetriesOn5xxThenSucceeds(t *testing.T) {
	m := NewRetry(RetryConfig{Attempts: 3, InitialDelay: time.Millisecond})
	var calls atomic.Int32
	next := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		n := calls.Add(1)
		if n < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return nil
		}
		w.WriteHeader(http.StatusOK)
		return nil
	}
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, httptest.NewRequest("GET", "/", nil), next)
	if calls.Load() != 2 {
		t.Fatalf("want two attempts, got %d", calls.Load())
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("want the successful attempt's 200 flushed, got %d", rec.Code)
	}
}

func TestRetry_GivesUpAfterAllAttempts(t *testing.T) {
	m := NewRetry(RetryConfig{Attempts: 2, InitialDelay: time.Millisecond})
	var calls atomic.Int32
	next := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		return nil
	}
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, httptest.NewRequest("GET", "/", nil), next)
	if calls.Load() != 2 {
		t.Fatalf("want exactly Attempts calls, got %d", calls.Load())
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("want the last failed attempt's status flushed, got %d", rec.Code)
	}
}

func TestRetry_NonIdempotentMethodNeverRetried(t *testing.T) {
	m := NewRetry(RetryConfig{Attempts: 3, InitialDelay: time.Millisecond})
	var calls atomic.Int32
	next := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		return nil
	}
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, httptest.NewRequest("POST", "/", nil), next)
	if calls.Load() != 1 {
		t.Fatalf("want POST never retried, got %d calls", calls.Load())
	}
}

func TestRetry_DefaultsAttemptsAndDelay(t *testing.T) {
	m := NewRetry(RetryConfig{})
	if m.cfg.Attempts != 1 {
		t.Fatalf("want default attempts 1, got %d", m.cfg.Attempts)
	}
	if m.cfg.InitialDelay != 100*time.Millisecond {
		t.Fatalf("want default delay 100ms, got %s", m.cfg.InitialDelay)
	}
}
