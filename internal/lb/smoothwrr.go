package lb

import (
	"sync"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// smoothWRR is the classical smooth weighted round-robin algorithm, kept
// from the teacher's internal/lb/lb.go: each server has (current,
// effective) weight; each pick adds weight to current, selects the max, and
// subtracts the cycle total from the winner. This guarantees low-dispersion
// selection rather than bursty runs of the heaviest server.
type smoothWRR struct {
	mu    sync.Mutex
	peers []*wrrPeer
}

type wrrPeer struct {
	server        model.Server
	weight        int
	currentWeight int
}

func NewSmoothWRR(servers []model.Server) Balancer {
	peers := make([]*wrrPeer, len(servers))
	for i, s := range servers {
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		peers[i] = &wrrPeer{server: s, weight: w}
	}
	return &smoothWRR{peers: peers}
}

func (b *smoothWRR) Next(hv HealthView) *model.Server {
	b.mu.Lock()
	defer b.mu.Unlock()

	var best *wrrPeer
	total := 0
	for _, p := range b.peers {
		if hv != nil && !hv.Eligible(p.server.ID) {
			continue
		}
		p.currentWeight += p.weight
		total += p.weight
		if best == nil || p.currentWeight > best.currentWeight {
			best = p
		}
	}
	if best == nil {
		return nil
	}
	best.currentWeight -= total
	s := best.server
	return &s
}
