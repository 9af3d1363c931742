package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/statestore"
)

func testHandler() (*Handler, statestore.NodeRegistry) {
	reg := statestore.NewMemoryNodeRegistry(time.Minute)
	h := NewHandler(reg, "self-1", "10.0.0.1:9000", zerolog.Nop())
	return h, reg
}

func TestHandler_ClusterListsSelfAndPeers(t *testing.T) {
	h, reg := testHandler()
	h.beat()
	_ = reg.Heartbeat(statestore.Node{ID: "peer-1", AdvertiseAddress: "10.0.0.2:9000"})

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/cluster", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var view clusterView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.SelfID != "self-1" {
		t.Fatalf("want self_id self-1, got %q", view.SelfID)
	}
	if len(view.Nodes) != 2 {
		t.Fatalf("want 2 nodes, got %d", len(view.Nodes))
	}
}

func TestHandler_NodesReturnsFlatList(t *testing.T) {
	h, reg := testHandler()
	_ = reg.Heartbeat(statestore.Node{ID: "n1"})
	_ = reg.Heartbeat(statestore.Node{ID: "n2"})

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/cluster/nodes", nil))

	var views []nodeView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 {
		t.Fatalf("want 2 nodes, got %d", len(views))
	}
}

func TestHandler_DrainSetsSelfDrainingAndRegistry(t *testing.T) {
	h, reg := testHandler()
	_ = reg.Heartbeat(statestore.Node{ID: "self-1"})

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/cluster/drain", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if !h.Draining() {
		t.Fatal("want Handler.Draining() true after draining self")
	}
	nodes, _ := reg.Nodes()
	if len(nodes) != 1 || nodes[0].Status != statestore.NodeDraining {
		t.Fatalf("want registry to reflect draining status, got %+v", nodes)
	}
}

func TestHandler_UndrainClearsDraining(t *testing.T) {
	h, reg := testHandler()
	_ = reg.Heartbeat(statestore.Node{ID: "self-1"})
	h.draining.Store(true)

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/cluster/undrain", nil))

	if h.Draining() {
		t.Fatal("want Draining() false after undrain")
	}
	nodes, _ := reg.Nodes()
	if len(nodes) != 1 || nodes[0].Status != statestore.NodeActive {
		t.Fatalf("want registry node active again, got %+v", nodes)
	}
}

func TestHandler_DrainByExplicitNodeIDDoesNotAffectSelf(t *testing.T) {
	h, reg := testHandler()
	_ = reg.Heartbeat(statestore.Node{ID: "self-1"})
	_ = reg.Heartbeat(statestore.Node{ID: "peer-1"})

	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/cluster/drain?node_id=peer-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if h.Draining() {
		t.Fatal("want self not marked draining when targeting a peer")
	}
	nodes, _ := reg.Nodes()
	for _, n := range nodes {
		if n.ID == "peer-1" && n.Status != statestore.NodeDraining {
			t.Fatalf("want peer-1 draining, got %+v", n)
		}
		if n.ID == "self-1" && n.Status != statestore.NodeActive {
			t.Fatalf("want self-1 still active, got %+v", n)
		}
	}
}

func TestHandler_RunHeartbeatStopsOnContextCancel(t *testing.T) {
	h, reg := testHandler()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.RunHeartbeat(ctx, 5*time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("want RunHeartbeat to return once its context is canceled")
	}
	nodes, _ := reg.Nodes()
	if len(nodes) != 1 || nodes[0].ID != "self-1" {
		t.Fatalf("want self heartbeated at least once, got %+v", nodes)
	}
}
