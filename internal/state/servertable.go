package state

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/health"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// serverEntry is one server's out-of-snapshot mutable state: in-flight
// count for least-connections, and the declared status an active/passive
// check last computed.
type serverEntry struct {
	inFlight atomic.Int64
	status   atomic.Int32 // model.ServerStatus
	drained  atomic.Bool
}

// ServerTable is the single shared mutable structure every request-handling
// goroutine consults for server eligibility and load, keyed by
// model.ServerID. It is sharded via xsync to keep the hot read/increment
// path lock-free under concurrency, and is long-lived across reloads —
// servers that persist across a config change keep their accumulated state.
type ServerTable struct {
	entries *xsync.Map[string, *serverEntry]
	passive *health.PassiveTracker
}

func NewServerTable(passive *health.PassiveTracker) *ServerTable {
	return &ServerTable{
		entries: xsync.NewMap[string, *serverEntry](),
		passive: passive,
	}
}

func (t *ServerTable) entry(serverID string) *serverEntry {
	e, _ := t.entries.LoadOrStore(serverID, &serverEntry{})
	return e
}

// Eligible satisfies internal/lb.HealthView: a server is eligible when it
// isn't draining, hasn't been marked Unhealthy, and isn't inside a passive
// skip window.
func (t *ServerTable) Eligible(serverID string) bool {
	e := t.entry(serverID)
	if e.drained.Load() {
		return false
	}
	if model.ServerStatus(e.status.Load()) == model.StatusUnhealthy {
		return false
	}
	if t.passive != nil && !t.passive.Eligible(serverID) {
		return false
	}
	return true
}

// InFlight satisfies internal/lb.HealthView for least-connections.
func (t *ServerTable) InFlight(serverID string) int64 {
	return t.entry(serverID).inFlight.Load()
}

// Acquire/Release bracket one proxied request/connection against serverID's
// in-flight counter; the caller defers Release.
func (t *ServerTable) Acquire(serverID string) {
	t.entry(serverID).inFlight.Add(1)
}

func (t *ServerTable) Release(serverID string) {
	t.entry(serverID).inFlight.Add(-1)
}

// RecordResult satisfies internal/health.Prober, feeding proxy-observed
// outcomes into the shared passive tracker.
func (t *ServerTable) RecordResult(serverID string, success bool) {
	if t.passive != nil {
		t.passive.RecordResult(serverID, success)
	}
}

// SetStatus records the last status an active checker or admin drain action
// computed for serverID.
func (t *ServerTable) SetStatus(serverID string, status model.ServerStatus) {
	t.entry(serverID).status.Store(int32(status))
}

func (t *ServerTable) Status(serverID string) model.ServerStatus {
	return model.ServerStatus(t.entry(serverID).status.Load())
}

// Drain marks serverID ineligible for new traffic without discarding its
// other counters, for the admin API's drain/undrain routes (spec.md §6).
func (t *ServerTable) Drain(serverID string, drained bool) {
	t.entry(serverID).drained.Store(drained)
}

// Prune removes entries for server IDs no longer present in the current
// snapshot, called once per reload after the new snapshot is published.
func (t *ServerTable) Prune(liveIDs map[string]struct{}) {
	t.entries.Range(func(id string, _ *serverEntry) bool {
		if _, ok := liveIDs[id]; !ok {
			t.entries.Delete(id)
		}
		return true
	})
}
