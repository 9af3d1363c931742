// Package l4tcp implements the L4 TCP passthrough/proxy path of spec.md's
// TCP routers: SNI-based routing for passthrough TLS connections, dialing
// the matched service's chosen upstream, and piping bytes bidirectionally.
// Grounded on the teacher's internal/proxy/tcp.go (idle-timeout wrapped
// net.Conn, the two-goroutine io.Copy-then-CloseWrite pipe) generalized
// from one fixed balancer to dispatch through a router.TCPTable match, and
// on the SNI-peeking technique of sniffing a ClientHello via a throwaway
// tls.Server handshake with GetConfigForClient, then replaying the
// consumed bytes to the real upstream connection for true passthrough.
package l4tcp

import (
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/router"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
)

// Revision is the slice of a compiled reload a Listener needs: the TCP
// router table for this entry point and the service registry/server table
// it resolves balancers and eligibility against.
type Revision struct {
	Table    *router.TCPTable
	Services *state.ServiceRegistry
}

// Listener accepts raw TCP connections for one entry point and proxies
// each to whichever service its matched router names.
type Listener struct {
	entryPoint        string
	current           *atomicRevision
	servers           *state.ServerTable
	metrics           *metrics.Registry
	idleTimeout       time.Duration
	connectionTimeout time.Duration
	dialTimeout       time.Duration
	log               zerolog.Logger
}

func NewListener(entryPoint string, servers *state.ServerTable, m *metrics.Registry, idleTimeout, connectionTimeout time.Duration, log zerolog.Logger) *Listener {
	return &Listener{
		entryPoint:        entryPoint,
		current:           newAtomicRevision(),
		servers:           servers,
		metrics:           m,
		idleTimeout:       idleTimeout,
		connectionTimeout: connectionTimeout,
		dialTimeout:       5 * time.Second,
		log:               log,
	}
}

func (l *Listener) Publish(rev *Revision) { l.current.Store(rev) }

// Serve accepts connections off ln until Accept returns an error (for
// example because ln was closed).
func (l *Listener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	if l.connectionTimeout > 0 {
		timer := time.AfterFunc(l.connectionTimeout, func() { _ = conn.Close() })
		defer timer.Stop()
	}

	rev := l.current.Load()
	if rev == nil {
		return
	}

	sni, replay, err := peekSNI(conn)
	if err != nil && sni == "" && len(replay) == 0 {
		l.log.Debug().Err(err).Msg("l4tcp: sni peek failed")
	}
	clientIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	req := &model.Request{SNI: sni, ClientIP: clientIP}
	route := rev.Table.Match(l.entryPoint, req)
	if route == nil {
		l.log.Debug().Str("sni", sni).Msg("l4tcp: no matching router")
		return
	}

	// route.Passthrough==false is accepted by config validation but not
	// locally terminated here: every TCP router is dispatched as
	// passthrough regardless of the flag. internal/certs now exists and
	// could back a tls.Server handshake in front of this dispatch, but
	// config.TCPRouter carries no TLS profile reference to pick a
	// Resolver by, so this is a scoped-out gap, not a TODO blocked on a
	// missing package.
	bal, ok := rev.Services.Balancer(route.Service)
	if !ok {
		l.log.Warn().Str("service", route.Service).Msg("l4tcp: unknown service")
		return
	}
	srv := bal.Next(l.servers)
	if srv == nil {
		l.log.Warn().Str("service", route.Service).Msg("l4tcp: no eligible server")
		return
	}

	upstream, err := net.DialTimeout("tcp", srv.URL.Host, l.dialTimeout)
	if err != nil {
		l.servers.RecordResult(srv.ID, false)
		l.log.Warn().Err(err).Str("upstream", srv.URL.Host).Msg("l4tcp: dial failed")
		return
	}
	defer upstream.Close()
	l.servers.RecordResult(srv.ID, true)

	l.servers.Acquire(srv.ID)
	defer l.servers.Release(srv.ID)

	if l.metrics != nil {
		l.metrics.IncActiveConns(l.entryPoint)
		defer l.metrics.DecActiveConns(l.entryPoint)
	}

	var clientSide, upstreamSide net.Conn = newReplayConn(conn, replay), upstream
	if l.idleTimeout > 0 {
		clientSide = &idleTimeoutConn{Conn: clientSide, timeout: l.idleTimeout}
		upstreamSide = &idleTimeoutConn{Conn: upstreamSide, timeout: l.idleTimeout}
	}

	pipe(clientSide, upstreamSide, conn, upstream)
}

// pipe copies bytes bidirectionally between the (possibly idle-timeout
// wrapped) client/upstream sides, but issues CloseWrite against the
// original unwrapped connections since idleTimeoutConn doesn't implement
// the half-close interface itself.
func pipe(client, upstream net.Conn, rawClient, rawUpstream net.Conn) {
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(upstream, client)
		if c, ok := rawUpstream.(*net.TCPConn); ok {
			_ = c.CloseWrite()
		}
		close(done)
	}()
	_, _ = io.Copy(client, upstream)
	if c, ok := rawClient.(*net.TCPConn); ok {
		_ = c.CloseWrite()
	}
	<-done
}

// idleTimeoutConn resets conn's read/write deadline on every call, closing
// the connection once no bytes have crossed it for timeout (spec.md's TCP
// idle-timeout setting).
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	_ = c.SetDeadline(time.Now().Add(c.timeout))
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	_ = c.SetDeadline(time.Now().Add(c.timeout))
	return c.Conn.Write(b)
}
