// Package reload compiles a parsed internal/config.File into an immutable
// model.RuntimeSnapshot plus the executable structures (router tables,
// load balancers, middleware chains) that sit in front of it, and exposes
// that bundle as a single Compiled value ready for atomic publication via
// internal/state.SnapshotHolder. It generalizes the teacher's
// handler.Gateway.UpdateState into a distinct compile stage so a bad config
// never reaches a running snapshot.
package reload

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/config"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/forward"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/health"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/lb"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/middleware"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/ratelimit"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/router"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/rule"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
)

// TerminalFactory builds the Handler that actually forwards a request to
// serviceName's chosen server (internal/proxy's job). It receives this
// revision's ServiceResolver and Service table so the returned Handler
// always dispatches against the same immutable revision its router chain
// was compiled from, never a later one a concurrent reload might publish.
type TerminalFactory func(registry lb.ServiceResolver, services map[string]*model.Service, serviceName string) middleware.Handler

// Compiled is one successfully compiled configuration revision: the
// provider-agnostic snapshot plus everything built on top of it that a
// running server needs to dispatch a request.
type Compiled struct {
	Snapshot  *model.RuntimeSnapshot
	HTTP      *router.Table
	TCP       *router.TCPTable
	UDP       *router.UDPTable
	Services  *state.ServiceRegistry
	Chains    map[string]middleware.Handler // by HTTP router name
	Breakers  map[string]*health.Breaker    // by service name
	LiveServers map[string]struct{}         // every server ID referenced, for state.ServerTable.Prune
}

// Reloader holds the long-lived collaborators a compile needs but that
// outlive any single revision: the connection-pool registry, the local
// rate-limit buckets, and the sticky-session store. These are exactly the
// pieces spec.md §5 calls out as surviving a reload untouched.
type Reloader struct {
	transports  *forward.Registry
	rateLimiter *ratelimit.Limiter
	sticky      lb.StateStore
	log         zerolog.Logger
}

func NewReloader(transports *forward.Registry, rateLimiter *ratelimit.Limiter, sticky lb.StateStore, log zerolog.Logger) *Reloader {
	return &Reloader{transports: transports, rateLimiter: rateLimiter, sticky: sticky, log: log}
}

// Compile validates f, builds every service's Balancer, every HTTP router's
// middleware chain (ending in terminal), and the per-protocol router
// tables. It never mutates any previously published Compiled value.
func (rl *Reloader) Compile(f *config.File, revision int64, terminal TerminalFactory) (*Compiled, error) {
	if err := config.Validate(f); err != nil {
		return nil, err
	}

	snap := &model.RuntimeSnapshot{
		Revision:    revision,
		EntryPoints: make(map[string]*model.EntryPoint, len(f.EntryPoints)),
		Services:    make(map[string]*model.Service, len(f.HTTP.Services)),
		Middlewares: make(map[string]*model.MiddlewareRef, len(f.HTTP.Middlewares)),
		TLSProfiles: make(map[string]*model.TLSProfile, len(f.TLS.Options)),
	}

	for name, ep := range f.EntryPoints {
		transport := model.TransportTCP
		if ep.Transport == string(model.TransportUDP) {
			transport = model.TransportUDP
		}
		snap.EntryPoints[name] = &model.EntryPoint{
			Name:                 name,
			Address:              ep.Address,
			Transport:            transport,
			TLSProfile:           ep.HTTP.TLS,
			KeepAliveMaxRequests: ep.KeepAlive.MaxRequests,
			KeepAliveMaxTime:     ep.KeepAlive.MaxTime.Duration(),
			IdleTimeout:          ep.KeepAlive.IdleTimeout.Duration(),
			ForwardedHeaders: model.ForwardedHeadersPolicy{
				Insecure:   ep.ForwardedHeaders.Insecure,
				TrustedIPs: ep.ForwardedHeaders.TrustedIPs,
			},
		}
	}

	for name, opt := range f.TLS.Options {
		snap.TLSProfiles[name] = &model.TLSProfile{
			Name:               name,
			MinVersion:         opt.MinVersion,
			CertResolver:       opt.CertResolver,
			ClientAuthRequired: opt.ClientAuthRequired,
		}
	}

	liveServers := make(map[string]struct{})

	// Pass 1: every service's plain model.Service, and simple (LoadBalancer)
	// Balancers, since composite services need these resolvable by name.
	registry := state.NewServiceRegistry()
	breakers := make(map[string]*health.Breaker)
	var composite []string
	for name, svc := range f.HTTP.Services {
		ms, err := rl.convertService(name, svc)
		if err != nil {
			return nil, fmt.Errorf("reload: service %q: %w", name, err)
		}
		snap.Services[name] = ms
		for _, srv := range ms.Servers {
			liveServers[srv.ID] = struct{}{}
		}
		if ms.Kind != model.ServiceLoadBalancer {
			composite = append(composite, name)
			continue
		}
		if ms.ServersTransport != "" {
			if t, ok := f.HTTP.ServersTransports[ms.ServersTransport]; ok {
				if err := rl.registerServersTransport(ms.ServersTransport, t); err != nil {
					return nil, fmt.Errorf("reload: service %q: %w", name, err)
				}
			}
		}
		bal := lb.New(ms.Policy, ms.Servers)
		if ms.Sticky != nil {
			bal = lb.NewSticky(bal, *ms.Sticky, rl.sticky, ms.Servers)
		}
		registry.Set(name, bal)
		if ms.CircuitBreaker != nil {
			breakers[name] = health.NewBreaker(health.FallbackConfig{
				FallbackDuration: ms.CircuitBreaker.FallbackDuration,
				RecoveryDuration: ms.CircuitBreaker.RecoveryDuration,
				HalfOpenProbes:   ms.CircuitBreaker.HalfOpenProbes,
			})
		}
	}

	// Pass 2: composite services, now that every simple sibling resolves.
	for _, name := range composite {
		ms := snap.Services[name]
		switch ms.Kind {
		case model.ServiceWeighted:
			registry.Set(name, lb.NewWeighted(ms.WeightedChildren, registry))
		case model.ServiceFailover:
			registry.Set(name, lb.NewFailover(ms.Primary, []string{ms.Fallback}, registry))
		case model.ServiceMirroring:
			registry.Set(name, lb.NewMirror(ms.Primary, ms.Mirrors, ms.MirrorBody, registry, rl.transports.Get(forward.ProtoAuto)))
		}
	}

	// Named middleware instances, expanding chain members up front.
	instances, err := rl.buildMiddlewareInstances(f, breakers)
	if err != nil {
		return nil, err
	}
	for name, mw := range f.HTTP.Middlewares {
		snap.Middlewares[name] = &model.MiddlewareRef{Name: name, Kind: middlewareKind(mw)}
	}

	// HTTP routers: compile predicates and build each one's full chain.
	chains := make(map[string]middleware.Handler, len(f.HTTP.Routers))
	var httpRouters []model.Router
	for name, r := range f.HTTP.Routers {
		pred, err := rule.Compile(r.Rule, rule.AllowL7)
		if err != nil {
			return nil, fmt.Errorf("reload: router %q: %w", name, err)
		}
		names, err := expandMiddlewareNames(name, r.Middlewares, f.HTTP.Middlewares)
		if err != nil {
			return nil, err
		}
		mws := make([]middleware.Middleware, 0, len(names)+1)
		for _, mn := range names {
			mw, ok := instances[mn]
			if !ok {
				return nil, fmt.Errorf("reload: router %q: middleware %q has no instance", name, mn)
			}
			mws = append(mws, mw)
		}
		if _, hasBreaker := breakers[r.Service]; hasBreaker {
			mws = append(mws, instances[breakerInstanceName(r.Service)])
		}
		chains[name] = middleware.Chain(mws, terminal(registry, snap.Services, r.Service))

		httpRouters = append(httpRouters, model.Router{
			Name:        name,
			EntryPoints: r.EntryPoints,
			Match:       pred,
			Service:     r.Service,
			Middlewares: names,
			Priority:    r.Priority,
			TLSProfile:  r.TLS,
		})
	}
	snap.HTTPRouters = httpRouters

	// TCP/UDP services and routers reuse the same Service/Balancer machinery.
	for name, svc := range f.TCP.Services {
		ms, err := rl.convertService(name, svc)
		if err != nil {
			return nil, fmt.Errorf("reload: tcp service %q: %w", name, err)
		}
		snap.Services[name] = ms
		for _, srv := range ms.Servers {
			liveServers[srv.ID] = struct{}{}
		}
		registry.Set(name, lb.New(ms.Policy, ms.Servers))
	}
	var tcpRouters []model.TCPRouter
	for name, r := range f.TCP.Routers {
		pred, err := rule.Compile(r.Rule, rule.AllowTCP)
		if err != nil {
			return nil, fmt.Errorf("reload: tcp router %q: %w", name, err)
		}
		tcpRouters = append(tcpRouters, model.TCPRouter{
			Name:        name,
			EntryPoints: r.EntryPoints,
			Match:       pred,
			Service:     r.Service,
			Middlewares: r.Middlewares,
			Priority:    r.Priority,
			Passthrough: r.Passthrough,
		})
	}
	snap.TCPRouters = tcpRouters

	for name, svc := range f.UDP.Services {
		ms, err := rl.convertService(name, svc)
		if err != nil {
			return nil, fmt.Errorf("reload: udp service %q: %w", name, err)
		}
		snap.Services[name] = ms
		for _, srv := range ms.Servers {
			liveServers[srv.ID] = struct{}{}
		}
		registry.Set(name, lb.New(ms.Policy, ms.Servers))
	}
	var udpRouters []model.UDPRouter
	for name, r := range f.UDP.Routers {
		pred, err := rule.Compile(r.Rule, rule.AllowUDP)
		if err != nil {
			return nil, fmt.Errorf("reload: udp router %q: %w", name, err)
		}
		udpRouters = append(udpRouters, model.UDPRouter{
			Name:        name,
			EntryPoints: r.EntryPoints,
			Match:       pred,
			Service:     r.Service,
			Middlewares: r.Middlewares,
		})
	}
	snap.UDPRouters = udpRouters

	return &Compiled{
		Snapshot:    snap,
		HTTP:        router.New(snap.HTTPRouters),
		TCP:         router.NewTCP(snap.TCPRouters),
		UDP:         router.NewUDP(snap.UDPRouters),
		Services:    registry,
		Chains:      chains,
		Breakers:    breakers,
		LiveServers: liveServers,
	}, nil
}

// registerServersTransport builds and registers the mTLS-capable
// RoundTripper a serversTransport block describes, keyed by its own name so
// a LoadBalancerService can opt into it via its serversTransport field.
func (rl *Reloader) registerServersTransport(name string, t config.ServersTransport) error {
	cfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
		ServerName:         t.ServerName,
	}
	if len(t.RootCAs) > 0 {
		pool := x509.NewCertPool()
		for _, path := range t.RootCAs {
			pem, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("serversTransport %q: read rootCA %s: %w", name, path, err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return fmt.Errorf("serversTransport %q: no certs parsed from %s", name, path)
			}
		}
		cfg.RootCAs = pool
	}
	if t.ClientCert != "" || t.ClientKey != "" {
		pair, err := tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return fmt.Errorf("serversTransport %q: load client cert: %w", name, err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	rl.transports.RegisterCustom(name, cfg, forward.ProtoAuto)
	return nil
}

func (rl *Reloader) convertService(name string, svc config.Service) (*model.Service, error) {
	switch {
	case svc.LoadBalancer != nil:
		lbc := svc.LoadBalancer
		servers := make([]model.Server, 0, len(lbc.Servers))
		for _, s := range lbc.Servers {
			ms, err := convertServer(s)
			if err != nil {
				return nil, err
			}
			servers = append(servers, ms)
		}
		ms := &model.Service{
			Name:             name,
			Kind:             model.ServiceLoadBalancer,
			Servers:          servers,
			Policy:           lbc.Policy,
			ServersTransport: lbc.ServersTransport,
			PassHostHeader:   lbc.PassHostHeader == nil || *lbc.PassHostHeader,
		}
		if lbc.Sticky != nil {
			ms.Sticky = &model.StickyConfig{
				CookieName:     lbc.Sticky.CookieName,
				CookieSecure:   lbc.Sticky.CookieSecure,
				CookieHTTPOnly: lbc.Sticky.CookieHTTPOnly,
				TTL:            lbc.Sticky.TTL.Duration(),
			}
		}
		if lbc.HealthCheck != nil {
			ms.HealthCheck = &model.HealthCheckConfig{
				Path:             lbc.HealthCheck.Path,
				Port:             lbc.HealthCheck.Port,
				Interval:         lbc.HealthCheck.Interval.Duration(),
				Timeout:          lbc.HealthCheck.Timeout.Duration(),
				FollowRedirects:  lbc.HealthCheck.FollowRedirects,
				Headers:          lbc.HealthCheck.Headers,
				Mode:             lbc.HealthCheck.Mode,
				FailureThreshold: lbc.HealthCheck.FailureThreshold,
				SuccessThreshold: lbc.HealthCheck.SuccessThreshold,
			}
		}
		if lbc.CircuitBreaker != nil {
			ms.CircuitBreaker = &model.CircuitBreakerConfig{
				Expression:       lbc.CircuitBreaker.Expression,
				CheckPeriod:      lbc.CircuitBreaker.CheckPeriod.Duration(),
				FallbackDuration: lbc.CircuitBreaker.FallbackDuration.Duration(),
				RecoveryDuration: lbc.CircuitBreaker.RecoveryDuration.Duration(),
				HalfOpenProbes:   lbc.CircuitBreaker.HalfOpenProbes,
			}
		}
		return ms, nil

	case svc.Weighted != nil:
		children := make([]model.WeightedChild, len(svc.Weighted.Services))
		for i, c := range svc.Weighted.Services {
			children[i] = model.WeightedChild{Service: c.Name, Weight: c.Weight}
		}
		return &model.Service{Name: name, Kind: model.ServiceWeighted, WeightedChildren: children}, nil

	case svc.Mirroring != nil:
		mirrors := make([]model.MirrorTarget, len(svc.Mirroring.Mirrors))
		for i, m := range svc.Mirroring.Mirrors {
			mirrors[i] = model.MirrorTarget{Service: m.Name, Percent: m.Percent}
		}
		return &model.Service{
			Name:       name,
			Kind:       model.ServiceMirroring,
			Primary:    svc.Mirroring.Service,
			Mirrors:    mirrors,
			MirrorBody: svc.Mirroring.MirrorBody,
		}, nil

	case svc.Failover != nil:
		return &model.Service{
			Name:     name,
			Kind:     model.ServiceFailover,
			Primary:  svc.Failover.Service,
			Fallback: svc.Failover.Fallback,
		}, nil
	}
	return nil, fmt.Errorf("service %q declares no kind", name)
}

func convertServer(s config.Server) (model.Server, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return model.Server{}, fmt.Errorf("server url %q: %w", s.URL, err)
	}
	weight := s.Weight
	if weight == 0 {
		weight = 1
	}
	hint := model.ProtoH1
	if u.Scheme == "h2c" {
		hint = model.ProtoH2C
		u.Scheme = "http"
	} else if u.Scheme == "https" {
		hint = model.ProtoH2
	}
	return model.Server{
		ID:           model.ServerID(u.Scheme, u.Host),
		URL:          u,
		Address:      u.Host,
		Weight:       weight,
		Scheme:       u.Scheme,
		ProtocolHint: hint,
	}, nil
}

// buildMiddlewareInstances builds one middleware.Middleware per named
// config middleware that isn't itself a chain (chains are expanded into
// their members at the router level, not given their own Handler slot).
func (rl *Reloader) buildMiddlewareInstances(f *config.File, breakers map[string]*health.Breaker) (map[string]middleware.Middleware, error) {
	out := make(map[string]middleware.Middleware, len(f.HTTP.Middlewares))
	transport := rl.transports.Get(forward.ProtoAuto)
	for name, mw := range f.HTTP.Middlewares {
		switch {
		case mw.RateLimit != nil:
			out[name] = middleware.NewRateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: mw.RateLimit.RequestsPerSecond,
				Burst:             mw.RateLimit.Burst,
				KeyBy:             mw.RateLimit.KeyBy,
				RouterName:        name,
			}, rl.rateLimiter)
		case mw.Headers != nil:
			out[name] = middleware.NewHeaders(middleware.HeadersConfig{
				CustomRequestHeaders:      mw.Headers.CustomRequestHeaders,
				CustomResponseHeaders:     mw.Headers.CustomResponseHeaders,
				RequestHeadersToRemove:    mw.Headers.RequestHeadersToRemove,
				ResponseHeadersToRemove:   mw.Headers.ResponseHeadersToRemove,
				AccessControlAllowMethods: mw.Headers.AccessControlAllowMethods,
				AccessControlAllowOrigin:  mw.Headers.AccessControlAllowOrigin,
				AccessControlAllowHeaders: mw.Headers.AccessControlAllowHeaders,
				AccessControlMaxAge:       mw.Headers.AccessControlMaxAge,
				AddVaryOrigin:             mw.Headers.AddVaryOrigin,
			})
		case mw.Retry != nil:
			out[name] = middleware.NewRetry(middleware.RetryConfig{
				Attempts:     mw.Retry.Attempts,
				InitialDelay: mw.Retry.InitialDelay.Duration(),
			})
		case mw.Compress != nil:
			out[name] = middleware.NewCompress(middleware.CompressConfig{
				MinSize:       mw.Compress.MinResponseBodyBytes,
				ExcludedTypes: mw.Compress.ExcludedContentTypes,
			})
		case mw.IPFilter != nil:
			out[name] = middleware.NewIPFilter(middleware.IPFilterConfig{
				Allow: mw.IPFilter.Allow,
				Deny:  mw.IPFilter.Deny,
				Depth: mw.IPFilter.Depth,
			})
		case mw.BasicAuth != nil:
			out[name] = middleware.NewBasicAuth(middleware.BasicAuthConfig{
				Users: mw.BasicAuth.Users,
				Realm: mw.BasicAuth.Realm,
			})
		case mw.DigestAuth != nil:
			out[name] = middleware.NewDigestAuth(middleware.DigestAuthConfig{
				Users:    mw.DigestAuth.Users,
				Realm:    mw.DigestAuth.Realm,
				NonceTTL: mw.DigestAuth.NonceTTL.Duration(),
			})
		case mw.ForwardAuth != nil:
			out[name] = middleware.NewForwardAuth(middleware.ForwardAuthConfig{
				Address:             mw.ForwardAuth.Address,
				TrustForwardHeader:  mw.ForwardAuth.TrustForwardHeader,
				AuthResponseHeaders: mw.ForwardAuth.AuthResponseHeaders,
				Timeout:             mw.ForwardAuth.Timeout.Duration(),
			}, transport)
		case mw.JWT != nil:
			out[name] = middleware.NewJWT(middleware.JWTConfig{
				Secret:         mw.JWT.Secret,
				Algorithm:      mw.JWT.Algorithm,
				RequiredClaims: mw.JWT.RequiredClaims,
			})
		case mw.StripPrefix != nil:
			out[name] = middleware.NewPath(middleware.PathConfig{StripPrefix: mw.StripPrefix.Prefix})
		case mw.AddPrefix != nil:
			out[name] = middleware.NewPath(middleware.PathConfig{AddPrefix: mw.AddPrefix.Prefix})
		case mw.ReplacePath != nil:
			out[name] = middleware.NewPath(middleware.PathConfig{ReplacePath: mw.ReplacePath.Path})
		case mw.ReplacePathRegex != nil:
			out[name] = middleware.NewPath(middleware.PathConfig{
				ReplacePathRegex: mw.ReplacePathRegex.Regex + " " + mw.ReplacePathRegex.Replacement,
			})
		case mw.StripPrefixRegex != nil:
			out[name] = middleware.NewPath(middleware.PathConfig{StripPrefixRegex: mw.StripPrefixRegex.Regex})
		case mw.RedirectScheme != nil:
			out[name] = middleware.NewRedirect(middleware.RedirectConfig{
				Scheme:    mw.RedirectScheme.Scheme,
				Port:      mw.RedirectScheme.Port,
				Permanent: mw.RedirectScheme.Permanent,
			})
		case mw.RedirectRegex != nil:
			out[name] = middleware.NewRedirect(middleware.RedirectConfig{
				Regex:       mw.RedirectRegex.Regex,
				Replacement: mw.RedirectRegex.Replacement,
				Permanent:   mw.RedirectRegex.Permanent,
			})
		case mw.Errors != nil:
			out[name] = middleware.NewErrors(middleware.ErrorsConfig{
				StatusMin:     mw.Errors.StatusMin,
				StatusMax:     mw.Errors.StatusMax,
				QueryTemplate: mw.Errors.QueryTemplate,
				Address:       errorsServiceAddress(f, mw.Errors.Service),
			}, transport)
		case mw.Buffering != nil:
			out[name] = middleware.NewBuffering(middleware.BufferingConfig{
				MaxRequestBodyBytes:  mw.Buffering.MaxRequestBodyBytes,
				MaxResponseBodyBytes: mw.Buffering.MaxResponseBodyBytes,
			})
		case mw.InFlightReq != nil:
			out[name] = middleware.NewInflight(middleware.InflightConfig{Amount: mw.InFlightReq.Amount})
		case mw.GRPCWeb != nil:
			out[name] = middleware.NewGRPCWeb()
		case mw.Chain != nil:
			// Chains have no Handler of their own; expandMiddlewareNames
			// inlines their members into whatever router references them.
		default:
			return nil, fmt.Errorf("middleware %q: no recognized kind", name)
		}
	}

	// Circuit breakers are service-scoped, not named middlewares, but they
	// are keyed into the same instance map under a synthetic name so a
	// router's chain can append them as the last link before the terminal.
	for svcName, b := range breakers {
		svc := f.HTTP.Services[svcName]
		fallbackSeconds := 0
		if svc.LoadBalancer != nil && svc.LoadBalancer.CircuitBreaker != nil {
			fallbackSeconds = int(svc.LoadBalancer.CircuitBreaker.FallbackDuration.Duration().Seconds())
		}
		out[breakerInstanceName(svcName)] = middleware.NewCircuitBreaker(b, fallbackSeconds)
	}
	return out, nil
}

func breakerInstanceName(service string) string { return "__circuitbreaker__:" + service }

// errorsServiceAddress resolves an errors middleware's target service name
// to a concrete base URL by picking its first configured server; custom
// error pages are expected to live behind a single, simple service.
func errorsServiceAddress(f *config.File, serviceName string) string {
	svc, ok := f.HTTP.Services[serviceName]
	if !ok || svc.LoadBalancer == nil || len(svc.LoadBalancer.Servers) == 0 {
		return ""
	}
	return svc.LoadBalancer.Servers[0].URL
}

// expandMiddlewareNames flattens chain references in names, in order; a
// middleware named more than once appears more than once in the result.
// The router's service circuit breaker is not included here: Compile
// appends it as the final link.
func expandMiddlewareNames(routerName string, names []string, all map[string]config.Middleware) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	var walk func(n string) error
	walk = func(n string) error {
		mw, ok := all[n]
		if !ok {
			return fmt.Errorf("reload: router %q: unknown middleware %q", routerName, n)
		}
		if mw.Chain == nil {
			out = append(out, n)
			return nil
		}
		if seen[n] {
			return fmt.Errorf("reload: router %q: middleware chain %q is cyclic", routerName, n)
		}
		seen[n] = true
		for _, member := range mw.Chain.Middlewares {
			if err := walk(member); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range names {
		if err := walk(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func middlewareKind(mw config.Middleware) string {
	switch {
	case mw.RateLimit != nil:
		return "rateLimit"
	case mw.Headers != nil:
		return "headers"
	case mw.Retry != nil:
		return "retry"
	case mw.Compress != nil:
		return "compress"
	case mw.IPFilter != nil:
		return "ipFilter"
	case mw.BasicAuth != nil:
		return "basicAuth"
	case mw.DigestAuth != nil:
		return "digestAuth"
	case mw.ForwardAuth != nil:
		return "forwardAuth"
	case mw.JWT != nil:
		return "jwt"
	case mw.StripPrefix != nil:
		return "stripPrefix"
	case mw.AddPrefix != nil:
		return "addPrefix"
	case mw.ReplacePath != nil:
		return "replacePath"
	case mw.ReplacePathRegex != nil:
		return "replacePathRegex"
	case mw.StripPrefixRegex != nil:
		return "stripPrefixRegex"
	case mw.RedirectScheme != nil:
		return "redirectScheme"
	case mw.RedirectRegex != nil:
		return "redirectRegex"
	case mw.Errors != nil:
		return "errors"
	case mw.Buffering != nil:
		return "buffering"
	case mw.InFlightReq != nil:
		return "inFlightReq"
	case mw.GRPCWeb != nil:
		return "grpcWeb"
	case mw.Chain != nil:
		return "chain"
	default:
		return "unknown"
	}
}

