package config

import (
	"fmt"
	"sort"
	"strings"
)

// Validate checks cross-reference integrity across a File: every name a
// router/service/middleware points at by string must resolve to something
// that actually exists. This is what cmd/trafficcop's --validate flag runs,
// and what internal/reload runs before it ever swaps in a new snapshot.
func Validate(f *File) error {
	var errs []string

	for name, ep := range f.EntryPoints {
		for _, mw := range ep.HTTP.Middlewares {
			if _, ok := f.HTTP.Middlewares[mw]; !ok {
				errs = append(errs, fmt.Sprintf("entryPoint %q: unknown middleware %q", name, mw))
			}
		}
	}

	for name, r := range f.HTTP.Routers {
		if r.Rule == "" {
			errs = append(errs, fmt.Sprintf("router %q: rule is required", name))
		}
		if r.Service == "" {
			errs = append(errs, fmt.Sprintf("router %q: service is required", name))
		} else if _, ok := f.HTTP.Services[r.Service]; !ok {
			errs = append(errs, fmt.Sprintf("router %q: unknown service %q", name, r.Service))
		}
		for _, ep := range r.EntryPoints {
			if _, ok := f.EntryPoints[ep]; !ok {
				errs = append(errs, fmt.Sprintf("router %q: unknown entryPoint %q", name, ep))
			}
		}
		for _, mw := range r.Middlewares {
			if _, ok := f.HTTP.Middlewares[mw]; !ok {
				errs = append(errs, fmt.Sprintf("router %q: unknown middleware %q", name, mw))
			}
		}
		if r.TLS != "" {
			if _, ok := f.TLS.Options[r.TLS]; !ok {
				errs = append(errs, fmt.Sprintf("router %q: unknown tls options %q", name, r.TLS))
			}
		}
	}

	for name, svc := range f.HTTP.Services {
		switch {
		case svc.LoadBalancer != nil:
			if len(svc.LoadBalancer.Servers) == 0 {
				errs = append(errs, fmt.Sprintf("service %q: loadBalancer has no servers", name))
			}
			if t := svc.LoadBalancer.ServersTransport; t != "" {
				if _, ok := f.HTTP.ServersTransports[t]; !ok {
					errs = append(errs, fmt.Sprintf("service %q: unknown serversTransport %q", name, t))
				}
			}
		case svc.Weighted != nil:
			if len(svc.Weighted.Services) == 0 {
				errs = append(errs, fmt.Sprintf("service %q: weighted has no children", name))
			}
			for _, c := range svc.Weighted.Services {
				if _, ok := f.HTTP.Services[c.Name]; !ok {
					errs = append(errs, fmt.Sprintf("service %q: unknown weighted child %q", name, c.Name))
				}
			}
		case svc.Mirroring != nil:
			if _, ok := f.HTTP.Services[svc.Mirroring.Service]; !ok {
				errs = append(errs, fmt.Sprintf("service %q: unknown mirroring primary %q", name, svc.Mirroring.Service))
			}
			for _, m := range svc.Mirroring.Mirrors {
				if _, ok := f.HTTP.Services[m.Name]; !ok {
					errs = append(errs, fmt.Sprintf("service %q: unknown mirror target %q", name, m.Name))
				}
			}
		case svc.Failover != nil:
			if _, ok := f.HTTP.Services[svc.Failover.Service]; !ok {
				errs = append(errs, fmt.Sprintf("service %q: unknown failover primary %q", name, svc.Failover.Service))
			}
			if _, ok := f.HTTP.Services[svc.Failover.Fallback]; !ok {
				errs = append(errs, fmt.Sprintf("service %q: unknown failover fallback %q", name, svc.Failover.Fallback))
			}
		default:
			errs = append(errs, fmt.Sprintf("service %q: no loadBalancer/weighted/mirroring/failover defined", name))
		}
	}

	if cycle := findServiceCycle(f.HTTP.Services); cycle != "" {
		errs = append(errs, fmt.Sprintf("service reference cycle: %s", cycle))
	}

	for name, mw := range f.HTTP.Middlewares {
		if mw.Chain == nil {
			continue
		}
		for _, member := range mw.Chain.Middlewares {
			if member == name {
				errs = append(errs, fmt.Sprintf("middleware %q: chain references itself", name))
				continue
			}
			if _, ok := f.HTTP.Middlewares[member]; !ok {
				errs = append(errs, fmt.Sprintf("middleware %q: chain references unknown middleware %q", name, member))
			}
		}
	}

	for name, r := range f.TCP.Routers {
		if r.Service == "" {
			errs = append(errs, fmt.Sprintf("tcp router %q: service is required", name))
		} else if _, ok := f.TCP.Services[r.Service]; !ok {
			errs = append(errs, fmt.Sprintf("tcp router %q: unknown service %q", name, r.Service))
		}
	}

	for name, r := range f.UDP.Routers {
		if r.Service == "" {
			errs = append(errs, fmt.Sprintf("udp router %q: service is required", name))
		} else if _, ok := f.UDP.Services[r.Service]; !ok {
			errs = append(errs, fmt.Sprintf("udp router %q: unknown service %q", name, r.Service))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// serviceChildren returns the other HTTP services a composite service
// (weighted/mirroring/failover) refers to by name. LoadBalancer services
// have no children and are the recursion's base case.
func serviceChildren(svc Service) []string {
	switch {
	case svc.Weighted != nil:
		children := make([]string, 0, len(svc.Weighted.Services))
		for _, c := range svc.Weighted.Services {
			children = append(children, c.Name)
		}
		return children
	case svc.Mirroring != nil:
		children := make([]string, 0, len(svc.Mirroring.Mirrors)+1)
		children = append(children, svc.Mirroring.Service)
		for _, m := range svc.Mirroring.Mirrors {
			children = append(children, m.Name)
		}
		return children
	case svc.Failover != nil:
		return []string{svc.Failover.Service, svc.Failover.Fallback}
	default:
		return nil
	}
}

// findServiceCycle walks the weighted/mirroring/failover service graph with
// a depth-first search, returning a description of the first cycle found
// (empty string if the graph is a DAG). Unknown child names are skipped
// here since the per-service checks above already report those.
func findServiceCycle(services map[string]Service) string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(services))
	var path []string

	var visit func(name string) string
	visit = func(name string) string {
		switch state[name] {
		case done:
			return ""
		case visiting:
			path = append(path, name)
			return strings.Join(path, " -> ")
		}
		svc, ok := services[name]
		if !ok {
			return ""
		}
		state[name] = visiting
		path = append(path, name)
		for _, child := range serviceChildren(svc) {
			if cycle := visit(child); cycle != "" {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return ""
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if state[name] != unvisited {
			continue
		}
		if cycle := visit(name); cycle != "" {
			return cycle
		}
	}
	return ""
}

// ValidationError aggregates every cross-reference problem found by
// Validate so callers (and --validate output) see the whole list at once
// instead of failing on the first one.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	s := fmt.Sprintf("%d configuration errors:", len(e.Errors))
	for _, err := range e.Errors {
		s += "\n  - " + err
	}
	return s
}
