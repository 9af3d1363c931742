// Package state holds the mutable, process-local structures that sit
// beside the immutable model.RuntimeSnapshot: the atomic pointer a reload
// publishes into, and the per-server health/load counters that outlive any
// single snapshot (spec.md §5 "shared mutable structures").
package state

import (
	"sync/atomic"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// SnapshotHolder publishes RuntimeSnapshots atomically so request-handling
// goroutines never observe a partially-built snapshot and never block on a
// reload in progress.
type SnapshotHolder struct {
	ptr atomic.Pointer[model.RuntimeSnapshot]
}

func NewSnapshotHolder() *SnapshotHolder {
	return &SnapshotHolder{}
}

// Load returns the currently published snapshot, or nil before the first
// successful reload.
func (h *SnapshotHolder) Load() *model.RuntimeSnapshot {
	return h.ptr.Load()
}

// Store publishes snap unconditionally. Callers (internal/reload) are
// expected to have already validated and compiled it.
func (h *SnapshotHolder) Store(snap *model.RuntimeSnapshot) {
	h.ptr.Store(snap)
}

// CompareAndSwap publishes snap only if the currently held snapshot is old,
// guarding against a slow reload racing a faster, newer one.
func (h *SnapshotHolder) CompareAndSwap(old, snap *model.RuntimeSnapshot) bool {
	return h.ptr.CompareAndSwap(old, snap)
}
