package router

import (
	"sort"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// TCPTable is the TCP-router analogue of Table, restricted to HostSNI,
// ClientIP and * predicates at compile time (internal/rule enforces this).
type TCPTable struct {
	byEntryPoint map[string][]model.TCPRouter
}

func NewTCP(routers []model.TCPRouter) *TCPTable {
	t := &TCPTable{byEntryPoint: make(map[string][]model.TCPRouter)}
	for _, r := range routers {
		for _, ep := range r.EntryPoints {
			t.byEntryPoint[ep] = append(t.byEntryPoint[ep], r)
		}
	}
	for ep := range t.byEntryPoint {
		rs := t.byEntryPoint[ep]
		sort.SliceStable(rs, func(i, j int) bool {
			pi, pj := effectiveTCPPriority(rs[i]), effectiveTCPPriority(rs[j])
			if pi != pj {
				return pi > pj
			}
			return rs[i].Name < rs[j].Name
		})
	}
	return t
}

func effectiveTCPPriority(r model.TCPRouter) int {
	if r.Priority != 0 {
		return r.Priority
	}
	if r.Match != nil {
		return r.Match.Weight()
	}
	return 0
}

func (t *TCPTable) Match(entryPoint string, req *model.Request) *model.TCPRouter {
	rs := t.byEntryPoint[entryPoint]
	for i := range rs {
		if rs[i].Match != nil && rs[i].Match.Match(req) {
			return &rs[i]
		}
	}
	return nil
}

// UDPTable is the UDP analogue, predicates restricted to ClientIP/*.
type UDPTable struct {
	byEntryPoint map[string][]model.UDPRouter
}

func NewUDP(routers []model.UDPRouter) *UDPTable {
	t := &UDPTable{byEntryPoint: make(map[string][]model.UDPRouter)}
	for _, r := range routers {
		for _, ep := range r.EntryPoints {
			t.byEntryPoint[ep] = append(t.byEntryPoint[ep], r)
		}
	}
	for ep := range t.byEntryPoint {
		sort.SliceStable(t.byEntryPoint[ep], func(i, j int) bool {
			return t.byEntryPoint[ep][i].Name < t.byEntryPoint[ep][j].Name
		})
	}
	return t
}

func (t *UDPTable) Match(entryPoint string, req *model.Request) *model.UDPRouter {
	rs := t.byEntryPoint[entryPoint]
	for i := range rs {
		if rs[i].Match != nil && rs[i].Match.Match(req) {
			return &rs[i]
		}
	}
	return nil
}
