package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInflight_AdmitsUnderLimit(t *testing.T) {
	m := NewInflight(InflightConfig{Amount: 2})
	req := httptest.NewRequest("GET", "/", nil)
	called := false
	_ = m.Process(context.Background(), httptest.NewRecorder(), req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("want request admitted under the limit")
	}
}

func TestInflight_RejectsOverLimit(t *testing.T) {
	m := NewInflight(InflightConfig{Amount: 1})
	blocker := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.Process(context.Background(), httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			close(blocker)
			<-release
			return nil
		})
	}()
	<-blocker

	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, httptest.NewRequest("GET", "/", nil), okTerminal)
	close(release)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429 once the single slot is occupied, got %d", rec.Code)
	}
}

func TestInflight_ZeroAmountMeansUnlimited(t *testing.T) {
	m := NewInflight(InflightConfig{Amount: 0})
	called := false
	_ = m.Process(context.Background(), httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil), func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("want requests admitted when Amount is unset")
	}
}
