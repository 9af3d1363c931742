package main

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/accesslog"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/certs"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/l4tcp"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/l4udp"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/proxy"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/reload"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
)

const defaultGraceTimeout = 30 * time.Second

// entryPointKind is which of the three listener shapes an entry point runs
// as, decided once per reload from which router tables reference its name.
type entryPointKind int

const (
	kindNone entryPointKind = iota
	kindHTTP
	kindTCP
	kindUDP
)

// classify decides, for every entry point in snap, which listener shape it
// needs. TCP routers win over HTTP routers on the same entry point (raw SNI
// passthrough can't share a socket with a terminating HTTP server); this
// repo doesn't implement Traefik's single-port HTTP/TCP SNI mux.
func classify(snap *model.RuntimeSnapshot) map[string]entryPointKind {
	out := make(map[string]entryPointKind, len(snap.EntryPoints))
	for name, ep := range snap.EntryPoints {
		if ep.Transport == model.TransportUDP {
			out[name] = kindUDP
			continue
		}
		out[name] = kindNone
	}
	for _, r := range snap.TCPRouters {
		for _, ep := range r.EntryPoints {
			if out[ep] != kindUDP {
				out[ep] = kindTCP
			}
		}
	}
	for _, r := range snap.HTTPRouters {
		for _, ep := range r.EntryPoints {
			if out[ep] == kindNone {
				out[ep] = kindHTTP
			}
		}
	}
	return out
}

// runningHTTP is one live L7 entry point: an http.Server whose Handler is a
// *proxy.Server, wrapping either a plain or TLS-accepting net.Listener.
type runningHTTP struct {
	server  *proxy.Server
	httpSrv *http.Server
	ln      net.Listener
}

type runningTCP struct {
	listener *l4tcp.Listener
	ln       net.Listener
}

type runningUDP struct {
	listener *l4udp.Listener
	conn     *net.UDPConn
}

// deps bundles the collaborators that outlive any single reload and that
// every entry point's listener needs to be constructed.
type deps struct {
	servers    *state.ServerTable
	metrics    *metrics.Registry
	accessLog  *accesslog.Logger
	resolvers  map[string]certs.Resolver
	log        zerolog.Logger
}

// runtime tracks every currently live entry point listener so reloads can
// diff against it: start what's new before publishing the revision, stop
// what's gone after.
type runtime struct {
	deps deps
	http map[string]*runningHTTP
	tcp  map[string]*runningTCP
	udp  map[string]*runningUDP
}

func newRuntime(d deps) *runtime {
	return &runtime{
		deps: d,
		http: make(map[string]*runningHTTP),
		tcp:  make(map[string]*runningTCP),
		udp:  make(map[string]*runningUDP),
	}
}

// sync brings the running listener set in line with compiled: starts any
// entry point newly referenced by a router before publishing, publishes the
// new revision into every still-live listener, then stops whatever is no
// longer referenced: an HTTP listener is shut down in the background with
// defaultGraceTimeout for in-flight requests to finish, while a TCP or UDP
// listener is closed at once without draining its open connections.
// sync returns the number of entry points that wanted a listener started
// this call but failed to bind, so main can tell a fully-dead startup
// (exit code 2, spec.md's listener bind error) from a partial one worth
// just logging and continuing with.
func (rt *runtime) sync(compiled *reload.Compiled) int {
	want := classify(compiled.Snapshot)
	failures := 0

	for name, kind := range want {
		ep := compiled.Snapshot.EntryPoints[name]
		switch kind {
		case kindHTTP:
			if _, ok := rt.http[name]; !ok {
				if r, err := rt.startHTTP(name, ep, compiled.Snapshot); err != nil {
					rt.deps.log.Error().Err(err).Str("entrypoint", name).Msg("trafficcop: http listener start failed")
					failures++
				} else {
					rt.http[name] = r
				}
			}
		case kindTCP:
			if _, ok := rt.tcp[name]; !ok {
				if r, err := rt.startTCP(name, ep); err != nil {
					rt.deps.log.Error().Err(err).Str("entrypoint", name).Msg("trafficcop: tcp listener start failed")
					failures++
				} else {
					rt.tcp[name] = r
				}
			}
		case kindUDP:
			if _, ok := rt.udp[name]; !ok {
				if r, err := rt.startUDP(name, ep); err != nil {
					rt.deps.log.Error().Err(err).Str("entrypoint", name).Msg("trafficcop: udp listener start failed")
					failures++
				} else {
					rt.udp[name] = r
				}
			}
		}
	}

	httpRev := &proxy.Revision{Table: compiled.HTTP, Chains: compiled.Chains}
	for _, r := range rt.http {
		r.server.Publish(httpRev)
	}
	tcpRev := &l4tcp.Revision{Table: compiled.TCP, Services: compiled.Services}
	for _, r := range rt.tcp {
		r.listener.Publish(tcpRev)
	}
	udpRev := &l4udp.Revision{Table: compiled.UDP, Services: compiled.Services, Catalog: compiled.Snapshot.Services}
	for _, r := range rt.udp {
		r.listener.Publish(udpRev)
	}

	for name, r := range rt.http {
		if want[name] != kindHTTP {
			delete(rt.http, name)
			go stopHTTP(r, defaultGraceTimeout)
		}
	}
	for name, r := range rt.tcp {
		if want[name] != kindTCP {
			delete(rt.tcp, name)
			_ = r.ln.Close()
		}
	}
	for name, r := range rt.udp {
		if want[name] != kindUDP {
			delete(rt.udp, name)
			_ = r.conn.Close()
		}
	}

	return failures
}

func (rt *runtime) startHTTP(name string, ep *model.EntryPoint, snap *model.RuntimeSnapshot) (*runningHTTP, error) {
	ln, err := net.Listen("tcp", ep.Address)
	if err != nil {
		return nil, err
	}
	if ep.TLSProfile != "" {
		profile := snap.TLSProfiles[ep.TLSProfile]
		resolver := resolverFor(rt.deps.resolvers, "")
		minVersion := tls.VersionTLS12
		clientAuth := false
		if profile != nil {
			resolver = resolverFor(rt.deps.resolvers, profile.CertResolver)
			minVersion = int(certs.ParseMinVersion(profile.MinVersion))
			clientAuth = profile.ClientAuthRequired
		}
		if resolver != nil {
			ln = tls.NewListener(ln, certs.TLSConfigFor(resolver, uint16(minVersion), clientAuth))
		} else {
			rt.deps.log.Warn().Str("entrypoint", name).Str("tls_profile", ep.TLSProfile).Msg("trafficcop: no certificate resolver for tls profile, serving plaintext")
		}
	}

	srv := proxy.NewServer(name, rt.deps.accessLog, rt.deps.metrics)
	idleTimeout := ep.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       idleTimeout,
	}
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			rt.deps.log.Error().Err(err).Str("entrypoint", name).Msg("trafficcop: http serve exited")
		}
	}()
	rt.deps.log.Info().Str("entrypoint", name).Str("address", ep.Address).Msg("trafficcop: http entry point listening")
	return &runningHTTP{server: srv, httpSrv: httpSrv, ln: ln}, nil
}

func (rt *runtime) startTCP(name string, ep *model.EntryPoint) (*runningTCP, error) {
	ln, err := net.Listen("tcp", ep.Address)
	if err != nil {
		return nil, err
	}
	idleTimeout := ep.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	listener := l4tcp.NewListener(name, rt.deps.servers, rt.deps.metrics, idleTimeout, 0, rt.deps.log)
	go func() {
		if err := listener.Serve(ln); err != nil {
			rt.deps.log.Debug().Err(err).Str("entrypoint", name).Msg("trafficcop: tcp serve exited")
		}
	}()
	rt.deps.log.Info().Str("entrypoint", name).Str("address", ep.Address).Msg("trafficcop: tcp entry point listening")
	return &runningTCP{listener: listener, ln: ln}, nil
}

func (rt *runtime) startUDP(name string, ep *model.EntryPoint) (*runningUDP, error) {
	addr, err := net.ResolveUDPAddr("udp", ep.Address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	listener := l4udp.NewListener(name, rt.deps.servers, rt.deps.metrics, ep.IdleTimeout, rt.deps.log)
	go func() {
		if err := listener.Serve(conn); err != nil {
			rt.deps.log.Debug().Err(err).Str("entrypoint", name).Msg("trafficcop: udp serve exited")
		}
	}()
	rt.deps.log.Info().Str("entrypoint", name).Str("address", ep.Address).Msg("trafficcop: udp entry point listening")
	return &runningUDP{listener: listener, conn: conn}, nil
}

func stopHTTP(r *runningHTTP, grace time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	_ = r.httpSrv.Shutdown(ctx)
}

// shutdownAll stops every live listener, draining HTTP entry points for
// grace before forcibly closing their listeners.
func (rt *runtime) shutdownAll(grace time.Duration) {
	for _, r := range rt.http {
		stopHTTP(r, grace)
	}
	for _, r := range rt.tcp {
		_ = r.ln.Close()
	}
	for _, r := range rt.udp {
		_ = r.conn.Close()
	}
}
