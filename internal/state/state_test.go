package state

import (
	"testing"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/health"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/lb"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

func TestServerTable_EligibleByDefault(t *testing.T) {
	tbl := NewServerTable(nil)
	if !tbl.Eligible("s1") {
		t.Fatal("want eligible for a never-seen server")
	}
}

func TestServerTable_UnhealthyIsIneligible(t *testing.T) {
	tbl := NewServerTable(nil)
	tbl.SetStatus("s1", model.StatusUnhealthy)
	if tbl.Eligible("s1") {
		t.Fatal("want ineligible once marked unhealthy")
	}
	tbl.SetStatus("s1", model.StatusHealthy)
	if !tbl.Eligible("s1") {
		t.Fatal("want eligible once marked healthy again")
	}
}

func TestServerTable_DrainedIsIneligible(t *testing.T) {
	tbl := NewServerTable(nil)
	tbl.Drain("s1", true)
	if tbl.Eligible("s1") {
		t.Fatal("want ineligible while draining")
	}
	tbl.Drain("s1", false)
	if !tbl.Eligible("s1") {
		t.Fatal("want eligible once undrained")
	}
}

func TestServerTable_PassiveTrackerGatesEligibility(t *testing.T) {
	passive := health.NewPassiveTracker(1, 1, 0)
	tbl := NewServerTable(passive)

	tbl.RecordResult("s1", false)
	if tbl.Eligible("s1") {
		t.Fatal("want ejected after passive failure threshold")
	}
}

func TestServerTable_AcquireReleaseTracksInFlight(t *testing.T) {
	tbl := NewServerTable(nil)
	tbl.Acquire("s1")
	tbl.Acquire("s1")
	if got := tbl.InFlight("s1"); got != 2 {
		t.Fatalf("want in-flight 2, got %d", got)
	}
	tbl.Release("s1")
	if got := tbl.InFlight("s1"); got != 1 {
		t.Fatalf("want in-flight 1, got %d", got)
	}
}

func TestServerTable_PruneRemovesStaleEntries(t *testing.T) {
	tbl := NewServerTable(nil)
	tbl.Acquire("stale")
	tbl.Acquire("live")

	tbl.Prune(map[string]struct{}{"live": {}})

	if tbl.InFlight("live") != 1 {
		t.Fatal("want live entry's counters kept across prune")
	}
	if tbl.InFlight("stale") != 0 {
		t.Fatal("want stale entry's counters reset (fresh entry created) after prune")
	}
}

func TestServiceRegistry_SetAndResolve(t *testing.T) {
	reg := NewServiceRegistry()
	b := lb.NewRoundRobin(nil)
	reg.Set("svc", b)

	got, ok := reg.Balancer("svc")
	if !ok || got != b {
		t.Fatalf("want registered balancer back, got %+v ok=%v", got, ok)
	}

	if _, ok := reg.Balancer("missing"); ok {
		t.Fatal("want false for an unregistered service")
	}
}

func TestSnapshotHolder_LoadNilBeforeStore(t *testing.T) {
	h := NewSnapshotHolder()
	if got := h.Load(); got != nil {
		t.Fatalf("want nil before first Store, got %+v", got)
	}
}

func TestSnapshotHolder_StoreThenLoad(t *testing.T) {
	h := NewSnapshotHolder()
	snap := &model.RuntimeSnapshot{Revision: 1}
	h.Store(snap)
	if got := h.Load(); got != snap {
		t.Fatalf("want stored snapshot back, got %+v", got)
	}
}

func TestSnapshotHolder_CompareAndSwap(t *testing.T) {
	h := NewSnapshotHolder()
	v1 := &model.RuntimeSnapshot{Revision: 1}
	v2 := &model.RuntimeSnapshot{Revision: 2}
	h.Store(v1)

	if !h.CompareAndSwap(v1, v2) {
		t.Fatal("want swap to succeed against the currently held value")
	}
	if got := h.Load(); got != v2 {
		t.Fatalf("want v2 after successful swap, got %+v", got)
	}

	// A stale compare-and-swap (racing an already-applied newer reload)
	// must not clobber v2.
	if h.CompareAndSwap(v1, &model.RuntimeSnapshot{Revision: 3}) {
		t.Fatal("want swap to fail against a stale expected value")
	}
	if got := h.Load(); got != v2 {
		t.Fatalf("want v2 still held after a failed swap, got %+v", got)
	}
}
