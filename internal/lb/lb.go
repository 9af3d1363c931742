// Package lb implements the load-balancing policies of spec.md §4.4:
// round-robin, smooth weighted round-robin, least-connections, and
// weighted-random, plus sticky sessions and the three composite service
// kinds (weighted, mirroring, failover) built on top of them.
package lb

import (
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// HealthView lets a Balancer ask about server health/load without owning
// that state itself — it is always backed by internal/state's ServerTable,
// the single shared mutable structure spec.md §5 calls out.
type HealthView interface {
	// Eligible reports whether serverID may currently receive traffic
	// (Healthy or Degraded, never Unhealthy/Draining).
	Eligible(serverID string) bool
	// InFlight returns the server's current in-flight request count, used
	// by the least-connections policy.
	InFlight(serverID string) int64
}

// Balancer selects one healthy server per request/connection. Built once
// per service at snapshot-build time from that service's server list.
type Balancer interface {
	Next(hv HealthView) *model.Server
}

// New builds the Balancer named by policy ("round_robin", "smooth_wrr",
// "least_conn", "random"), defaulting to smooth_wrr (spec.md's baseline
// policy, per the teacher's original choice) when policy is empty or
// unrecognized.
func New(policy string, servers []model.Server) Balancer {
	switch policy {
	case "round_robin":
		return NewRoundRobin(servers)
	case "least_conn":
		return NewLeastConn(servers)
	case "random":
		return NewRandom(servers)
	default:
		return NewSmoothWRR(servers)
	}
}

// eligibleServers filters servers down to the ones hv currently admits.
func eligibleServers(servers []model.Server, hv HealthView) []model.Server {
	if hv == nil {
		return servers
	}
	out := make([]model.Server, 0, len(servers))
	for _, s := range servers {
		if hv.Eligible(s.ID) {
			out = append(out, s)
		}
	}
	return out
}
