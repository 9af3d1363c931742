package lb

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// Target is what a composite service resolves a request to: a concrete
// balancer-selected server plus the name of the underlying service that
// produced it, for metrics/access-log attribution.
type Target struct {
	Server      *model.Server
	ServiceName string
}

// ServiceResolver looks up a named service's Balancer, as built by
// internal/state at snapshot-build time. Composite services reference their
// children by name (spec.md §4.5) rather than embedding them, so cycles are
// caught at compile time rather than by the type system.
type ServiceResolver interface {
	Balancer(serviceName string) (Balancer, bool)
}

// Weighted fans a request out to one of several child services chosen by
// cumulative weight, mirroring Random's sampling but one level up the
// service graph (spec.md §4.5 "Weighted").
type Weighted struct {
	children []model.WeightedChild
	resolver ServiceResolver
}

func NewWeighted(children []model.WeightedChild, resolver ServiceResolver) *Weighted {
	return &Weighted{children: append([]model.WeightedChild(nil), children...), resolver: resolver}
}

func (w *Weighted) Next(hv HealthView) *model.Server {
	total := 0
	for _, c := range w.children {
		wt := c.Weight
		if wt <= 0 {
			wt = 1
		}
		total += wt
	}
	if total == 0 {
		return nil
	}
	pick := rand.IntN(total)
	acc := 0
	for _, c := range w.children {
		wt := c.Weight
		if wt <= 0 {
			wt = 1
		}
		acc += wt
		if pick >= acc {
			continue
		}
		bal, ok := w.resolver.Balancer(c.Service)
		if !ok {
			return nil
		}
		return bal.Next(hv)
	}
	return nil
}

// Failover tries its primary service first and falls through to the next
// child the moment the current one has no eligible server left (spec.md
// §4.5 "Failover"). Children are tried in the order given.
type Failover struct {
	primary  string
	fallback []string
	resolver ServiceResolver
}

func NewFailover(primary string, fallback []string, resolver ServiceResolver) *Failover {
	return &Failover{primary: primary, fallback: append([]string(nil), fallback...), resolver: resolver}
}

func (f *Failover) Next(hv HealthView) *model.Server {
	names := append([]string{f.primary}, f.fallback...)
	for _, name := range names {
		bal, ok := f.resolver.Balancer(name)
		if !ok {
			continue
		}
		if srv := bal.Next(hv); srv != nil {
			return srv
		}
	}
	return nil
}

// Mirror fire-and-forgets a copy of each request's body to one or more
// mirror services at a configured sampling percentage, in addition to
// serving the real response from the primary (spec.md §4.5 "Mirroring").
// RoundTrip failures against mirrors are swallowed; mirrors never affect the
// primary response.
type Mirror struct {
	primary   string
	targets   []model.MirrorTarget
	mirrorAll bool
	resolver  ServiceResolver
	transport http.RoundTripper
	pool      pond.Pool
}

func NewMirror(primary string, targets []model.MirrorTarget, mirrorBody bool, resolver ServiceResolver, transport http.RoundTripper) *Mirror {
	return &Mirror{
		primary:   primary,
		targets:   append([]model.MirrorTarget(nil), targets...),
		mirrorAll: mirrorBody,
		resolver:  resolver,
		transport: transport,
		pool:      pond.NewPool(32),
	}
}

func (m *Mirror) Next(hv HealthView) *model.Server {
	bal, ok := m.resolver.Balancer(m.primary)
	if !ok {
		return nil
	}
	return bal.Next(hv)
}

// Fire dispatches mirrored copies of req to every target that samples in,
// using hv to pick a live server per mirror service. The caller (the
// terminator in internal/proxy) supplies an already-buffered body reader
// since the primary request still needs to consume the original body.
func (m *Mirror) Fire(ctx context.Context, req *http.Request, body func() io.ReadCloser, hv HealthView) {
	for _, t := range m.targets {
		t := t
		if t.Percent < 100 && rand.Float64()*100 >= t.Percent {
			continue
		}
		bal, ok := m.resolver.Balancer(t.Service)
		if !ok {
			continue
		}
		m.pool.Submit(func() {
			m.mirrorOnce(ctx, req, body, bal, hv)
		})
	}
}

func (m *Mirror) mirrorOnce(ctx context.Context, req *http.Request, body func() io.ReadCloser, bal Balancer, hv HealthView) {
	srv := bal.Next(hv)
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clone := req.Clone(ctx)
	clone.URL.Scheme = srv.Scheme
	clone.URL.Host = srv.Address
	clone.RequestURI = ""
	if m.mirrorAll {
		clone.Body = body()
	} else {
		clone.Body = http.NoBody
		clone.ContentLength = 0
	}
	resp, err := m.transport.RoundTrip(clone)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
}
