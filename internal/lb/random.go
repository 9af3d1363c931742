package lb

import (
	"math/rand/v2"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// random samples with replacement using cumulative weights (spec.md §4.4).
// A CSPRNG is not required here.
type random struct {
	servers []model.Server
}

func NewRandom(servers []model.Server) Balancer {
	return &random{servers: append([]model.Server(nil), servers...)}
}

func (b *random) Next(hv HealthView) *model.Server {
	candidates := eligibleServers(b.servers, hv)
	if len(candidates) == 0 {
		return nil
	}
	total := 0
	for _, s := range candidates {
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		total += w
	}
	pick := rand.IntN(total)
	acc := 0
	for _, s := range candidates {
		w := s.Weight
		if w <= 0 {
			w = 1
		}
		acc += w
		if pick < acc {
			sCopy := s
			return &sCopy
		}
	}
	return &candidates[len(candidates)-1]
}
