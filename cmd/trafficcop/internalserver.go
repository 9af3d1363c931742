package main

import (
	"net/http"
	"time"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/admin"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/config"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
)

// newInternalServer builds the process-internal HTTP server carrying
// /metrics and the cluster admin routes. It reuses metrics.prometheus.address
// as its bind address rather than inventing a separate admin listener,
// since api{} in config.File has no address field of its own. Returns nil
// when no address is configured, in which case neither surface is served.
func newInternalServer(f *config.File, adminHandler *admin.Handler, m *metrics.Registry) *http.Server {
	addr := ""
	if f.Metrics.Prometheus != nil {
		addr = f.Metrics.Prometheus.Address
	}
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	adminHandler.Register(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
