package router

import (
	"testing"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/rule"
)

func mustCompile(t *testing.T, expr string, allow rule.AllowSet) model.RuleMatcher {
	t.Helper()
	p, err := rule.Compile(expr, allow)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return p
}

func TestTable_PriorityAndNameTiebreak(t *testing.T) {
	routers := []model.Router{
		{Name: "b", EntryPoints: []string{"web"}, Match: mustCompile(t, "PathPrefix(`/api`)", rule.AllowL7), Service: "s1"},
		{Name: "a", EntryPoints: []string{"web"}, Match: mustCompile(t, "PathPrefix(`/api`)", rule.AllowL7), Service: "s2"},
		{Name: "longer", EntryPoints: []string{"web"}, Match: mustCompile(t, "PathPrefix(`/api`) && Host(`x.com`)", rule.AllowL7), Service: "s3"},
	}
	tbl := New(routers)
	got := tbl.Match("web", &model.Request{Host: "x.com", Path: "/api/v1"})
	if got == nil || got.Service != "s3" {
		t.Fatalf("want s3 (higher complexity weight wins), got %+v", got)
	}

	got = tbl.Match("web", &model.Request{Host: "other.com", Path: "/api/v1"})
	if got == nil || got.Name != "a" {
		t.Fatalf("want tie broken lexically to 'a', got %+v", got)
	}
}

func TestTable_NoMatchReturnsNil(t *testing.T) {
	tbl := New(nil)
	if got := tbl.Match("web", &model.Request{Host: "x", Path: "/"}); got != nil {
		t.Fatalf("expected nil on empty table, got %+v", got)
	}
}

func TestTCPTable_HostSNI(t *testing.T) {
	routers := []model.TCPRouter{
		{Name: "r1", EntryPoints: []string{"tcp"}, Match: mustCompile(t, "HostSNI(`db.example.com`)", rule.AllowTCP), Service: "s1"},
		{Name: "fallback", EntryPoints: []string{"tcp"}, Match: mustCompile(t, "*", rule.AllowTCP), Service: "s2"},
	}
	tbl := NewTCP(routers)
	got := tbl.Match("tcp", &model.Request{SNI: "db.example.com"})
	if got == nil || got.Service != "s1" {
		t.Fatalf("want s1, got %+v", got)
	}
	got = tbl.Match("tcp", &model.Request{SNI: "other"})
	if got == nil || got.Service != "s2" {
		t.Fatalf("want fallback s2, got %+v", got)
	}
}
