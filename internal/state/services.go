package state

import (
	"sync"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/lb"
)

// ServiceRegistry holds one Balancer per configured service for a single
// RuntimeSnapshot revision. internal/reload builds a fresh registry on every
// successful reload (composite services need every sibling Balancer
// constructed before they can resolve each other by name) and publishes it
// alongside the snapshot it was built from.
type ServiceRegistry struct {
	mu        sync.RWMutex
	balancers map[string]lb.Balancer
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{balancers: make(map[string]lb.Balancer)}
}

// Set registers name's Balancer. Called only during registry construction,
// before the registry is published to request-handling goroutines.
func (r *ServiceRegistry) Set(name string, b lb.Balancer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balancers[name] = b
}

// Balancer satisfies internal/lb.ServiceResolver.
func (r *ServiceRegistry) Balancer(name string) (lb.Balancer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balancers[name]
	return b, ok
}
