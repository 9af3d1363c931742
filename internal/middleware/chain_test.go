package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordingMiddleware struct {
	name string
	out  *[]string
}

func (m recordingMiddleware) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	*m.out = append(*m.out, m.name)
	return next(ctx, w, r)
}

func TestChain_RunsInOrderThenTerminal(t *testing.T) {
	var order []string
	a := recordingMiddleware{name: "a", out: &order}
	b := recordingMiddleware{name: "b", out: &order}
	terminal := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		order = append(order, "terminal")
		return nil
	}
	h := Chain([]Middleware{a, b}, terminal)

	req := httptest.NewRequest("GET", "/", nil)
	if err := h(context.Background(), httptest.NewRecorder(), req); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "terminal"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("step %d: want %s, got %s", i, w, order[i])
		}
	}
}

func TestChain_EmptyMiddlewareListCallsTerminalDirectly(t *testing.T) {
	called := false
	terminal := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	}
	h := Chain(nil, terminal)
	_ = h(context.Background(), httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Fatal("want terminal invoked when no middlewares are configured")
	}
}

type shortCircuitMiddleware struct{}

func (shortCircuitMiddleware) Process(ctx context.Context, w http.ResponseWriter, r *http.Request, next Handler) error {
	w.WriteHeader(http.StatusForbidden)
	return nil
}

func TestChain_MiddlewareCanShortCircuit(t *testing.T) {
	terminalCalled := false
	terminal := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		terminalCalled = true
		return nil
	}
	h := Chain([]Middleware{shortCircuitMiddleware{}}, terminal)
	rec := httptest.NewRecorder()
	_ = h(context.Background(), rec, httptest.NewRequest("GET", "/", nil))
	if terminalCalled {
		t.Fatal("want terminal skipped after a short-circuit")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
}
