// Package admin implements the four routes spec.md §6 names for the "Admin
// API" external collaborator: GET /api/cluster, GET /api/cluster/nodes,
// POST /api/cluster/drain, POST /api/cluster/undrain. The real admin UI
// (dashboards, auth, TLS termination for the admin surface itself) stays an
// external collaborator per the spec's explicit scope note; this package is
// the minimal contract implementation so cluster drain/undrain — which the
// core's shutdown/reload path must honor — has a concrete caller.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/apierr"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/statestore"
)

// Handler serves the cluster admin routes against a statestore.NodeRegistry.
// SelfID names the node this process heartbeats as, used as the implicit
// target for requests that don't pass an explicit node_id.
type Handler struct {
	registry  statestore.NodeRegistry
	selfID    string
	advertise string
	draining  atomic.Bool
	log       zerolog.Logger
}

func NewHandler(registry statestore.NodeRegistry, selfID, advertiseAddress string, log zerolog.Logger) *Handler {
	return &Handler{registry: registry, selfID: selfID, advertise: advertiseAddress, log: log}
}

// Draining reports whether the admin API has put this node into its
// drain state, so the core's listener accept loop and health probes can
// stop admitting new traffic without needing their own registry handle.
func (h *Handler) Draining() bool { return h.draining.Load() }

// RunHeartbeat re-announces this node on interval until ctx is canceled,
// blocking the caller; run it in its own goroutine. The self node's
// advertised status tracks Draining so a restarted process picks up
// wherever SetDraining last left it.
func (h *Handler) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	h.beat()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *Handler) beat() {
	status := statestore.NodeActive
	if h.draining.Load() {
		status = statestore.NodeDraining
	}
	if err := h.registry.Heartbeat(statestore.Node{
		ID:               h.selfID,
		AdvertiseAddress: h.advertise,
		Status:           status,
	}); err != nil {
		h.log.Warn().Err(err).Str("node_id", h.selfID).Msg("admin: heartbeat failed")
	}
}

// Register mounts the four routes on mux under /api/cluster.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cluster", h.handleCluster)
	mux.HandleFunc("GET /api/cluster/nodes", h.handleNodes)
	mux.HandleFunc("POST /api/cluster/drain", h.handleDrain)
	mux.HandleFunc("POST /api/cluster/undrain", h.handleUndrain)
}

type nodeView struct {
	ID               string    `json:"id"`
	AdvertiseAddress string    `json:"advertise_address"`
	Status           string    `json:"status"`
	LastHeartbeat    time.Time `json:"last_heartbeat"`
}

type clusterView struct {
	SelfID string     `json:"self_id"`
	Nodes  []nodeView `json:"nodes"`
}

func toView(n statestore.Node) nodeView {
	return nodeView{
		ID:               n.ID,
		AdvertiseAddress: n.AdvertiseAddress,
		Status:           n.Status.String(),
		LastHeartbeat:    n.LastHeartbeat,
	}
}

// handleCluster returns the whole cluster's membership plus which node
// answered the request, so a caller behind a load balancer can tell which
// node it happened to hit.
func (h *Handler) handleCluster(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.registry.Nodes()
	if err != nil {
		apierr.Render(w, h.log, apierr.Internal(err))
		return
	}
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, toView(n))
	}
	writeJSON(w, http.StatusOK, clusterView{SelfID: h.selfID, Nodes: views})
}

// handleNodes returns the flat node list without the self_id wrapper.
func (h *Handler) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.registry.Nodes()
	if err != nil {
		apierr.Render(w, h.log, apierr.Internal(err))
		return
	}
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, toView(n))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleDrain(w http.ResponseWriter, r *http.Request) {
	h.setDraining(w, r, true)
}

func (h *Handler) handleUndrain(w http.ResponseWriter, r *http.Request) {
	h.setDraining(w, r, false)
}

func (h *Handler) setDraining(w http.ResponseWriter, r *http.Request, draining bool) {
	nodeID := r.URL.Query().Get("node_id")
	if nodeID == "" {
		nodeID = h.selfID
	}
	if err := h.registry.SetDraining(nodeID, draining); err != nil {
		apierr.Render(w, h.log, apierr.Internal(err))
		return
	}
	if nodeID == h.selfID {
		h.draining.Store(draining)
	}
	writeJSON(w, http.StatusOK, map[string]any{"node_id": nodeID, "draining": draining})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
