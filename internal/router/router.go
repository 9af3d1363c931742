// Package router holds the ordered, priority-resolved router tables
// dispatched per entry point. One Table is built per protocol class
// (HTTP, TCP, UDP) at snapshot build time and is read-only thereafter;
// a reload builds a brand new Table and the reloader swaps the pointer
// inside the RuntimeSnapshot — this package never mutates one in place.
package router

import (
	"sort"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// Table dispatches one request to at most one router, per entry point.
type Table struct {
	byEntryPoint map[string][]model.Router
}

// New groups routers by entry point and sorts each group by
// (priority desc, name asc) — the spec's locked-in tiebreaker.
func New(routers []model.Router) *Table {
	t := &Table{byEntryPoint: make(map[string][]model.Router)}
	for _, r := range routers {
		for _, ep := range r.EntryPoints {
			t.byEntryPoint[ep] = append(t.byEntryPoint[ep], r)
		}
	}
	for ep := range t.byEntryPoint {
		sortRouters(t.byEntryPoint[ep])
	}
	return t
}

func sortRouters(rs []model.Router) {
	sort.SliceStable(rs, func(i, j int) bool {
		pi, pj := effectivePriority(rs[i]), effectivePriority(rs[j])
		if pi != pj {
			return pi > pj
		}
		return rs[i].Name < rs[j].Name
	})
}

// effectivePriority returns the router's configured Priority, or its
// predicate's complexity-derived weight when Priority is unset (zero).
func effectivePriority(r model.Router) int {
	if r.Priority != 0 {
		return r.Priority
	}
	if r.Match != nil {
		return r.Match.Weight()
	}
	return 0
}

// Match performs a linear scan of the entry point's router group, returning
// the first router whose predicate matches req, or nil.
func (t *Table) Match(entryPoint string, req *model.Request) *model.Router {
	rs := t.byEntryPoint[entryPoint]
	for i := range rs {
		if rs[i].Match != nil && rs[i].Match.Match(req) {
			return &rs[i]
		}
	}
	return nil
}

// Routers returns the sorted router group for an entry point, e.g. for
// diagnostics or the admin API.
func (t *Table) Routers(entryPoint string) []model.Router {
	return t.byEntryPoint[entryPoint]
}
