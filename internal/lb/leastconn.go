package lb

import "github.com/ZerosAndOnesLLC/TrafficCop/internal/model"

// leastConn is argmin over in-flight requests; ties broken by weight (higher
// first) then by server index (spec.md §4.4).
type leastConn struct {
	servers []model.Server
}

func NewLeastConn(servers []model.Server) Balancer {
	return &leastConn{servers: append([]model.Server(nil), servers...)}
}

func (b *leastConn) Next(hv HealthView) *model.Server {
	var best *model.Server
	bestInFlight := int64(-1)
	bestWeight := -1
	for i := range b.servers {
		s := b.servers[i]
		if hv != nil && !hv.Eligible(s.ID) {
			continue
		}
		inFlight := int64(0)
		if hv != nil {
			inFlight = hv.InFlight(s.ID)
		}
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		switch {
		case best == nil:
		case inFlight < bestInFlight:
		case inFlight == bestInFlight && w > bestWeight:
		default:
			continue
		}
		sCopy := s
		best = &sCopy
		bestInFlight = inFlight
		bestWeight = w
	}
	return best
}
