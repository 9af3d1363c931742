package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIPFilter_DenyBlocksMatchingCIDR(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{Deny: []string{"10.0.0.0/8"}})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, okTerminal)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
}

func TestIPFilter_AllowListRejectsOutsideIt(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{Allow: []string{"192.168.1.0/24"}})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "8.8.8.8:1234"
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, okTerminal)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}
}

func TestIPFilter_AllowListPermitsMatch(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{Allow: []string{"192.168.1.0/24"}})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.42:1234"
	rec := httptest.NewRecorder()
	called := false
	_ = m.Process(context.Background(), rec, req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("want request admitted")
	}
}

func TestIPFilter_NoRulesAdmitsEverything(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "1.2.3.4:1234"
	called := false
	_ = m.Process(context.Background(), httptest.NewRecorder(), req, func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		called = true
		return nil
	})
	if !called {
		t.Fatal("want request admitted with no allow/deny rules")
	}
}

func TestIPFilter_ResolvesFromXForwardedForAtDepth(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{Deny: []string{"1.1.1.1/32"}, Depth: 2})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2, 3.3.3.3")
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, okTerminal)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want the depth-2 XFF entry (1.1.1.1) evaluated and denied, got %d", rec.Code)
	}
}

func TestIPFilter_UnparsableRemoteAddrIsForbidden(t *testing.T) {
	m := NewIPFilter(IPFilterConfig{})
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "not-an-address"
	rec := httptest.NewRecorder()
	_ = m.Process(context.Background(), rec, req, okTerminal)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403 for an unparsable client IP, got %d", rec.Code)
	}
}
