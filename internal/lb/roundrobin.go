package lb

import (
	"sync/atomic"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// roundRobin is a monotonic counter modulo the healthy-server set size
// (spec.md §4.4). Unlike smooth-WRR it ignores weight entirely.
type roundRobin struct {
	servers []model.Server
	counter atomic.Uint64
}

func NewRoundRobin(servers []model.Server) Balancer {
	return &roundRobin{servers: append([]model.Server(nil), servers...)}
}

func (b *roundRobin) Next(hv HealthView) *model.Server {
	candidates := eligibleServers(b.servers, hv)
	if len(candidates) == 0 {
		return nil
	}
	i := b.counter.Add(1) - 1
	s := candidates[i%uint64(len(candidates))]
	return &s
}
