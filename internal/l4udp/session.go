// Package l4udp implements the L4 UDP routing engine of spec.md §4.9: a
// session table keyed by (clientAddr, entryPoint), consistent-hash server
// selection via github.com/dgryski/go-rendezvous so unrelated client churn
// doesn't reshuffle existing sessions, and a periodic idle sweep. The
// teacher has no UDP support, so this package's shape is new; it reuses
// internal/state's ServerTable/ServiceRegistry and internal/health's
// Prober the same way internal/l4tcp and internal/proxy do.
package l4udp

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/router"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
)

const defaultSessionIdleTimeout = 60 * time.Second

// Revision is the slice of a compiled reload a Listener needs to route UDP
// datagrams: the UDP router table, the service registry (for eligibility
// via HealthView) and the flat service table (for each service's full
// server list, which the rendezvous ring needs but lb.Balancer doesn't
// expose).
type Revision struct {
	Table    *router.UDPTable
	Services *state.ServiceRegistry
	Catalog  map[string]*model.Service
}

type session struct {
	clientAddr   *net.UDPAddr
	upstreamConn *net.UDPConn
	serverID     string
	lastActive   atomic.Int64 // unix nanos
	closed       atomic.Bool
}

// Listener owns one shared UDP socket for an entry point and fans incoming
// datagrams out across per-client sessions, each with its own dedicated
// upstream connection and response-relay goroutine.
type Listener struct {
	entryPoint  string
	current     *atomicRevision
	servers     *state.ServerTable
	metrics     *metrics.Registry
	idleTimeout time.Duration
	log         zerolog.Logger

	sessions *xsync.Map[string, *session]
}

func NewListener(entryPoint string, servers *state.ServerTable, m *metrics.Registry, idleTimeout time.Duration, log zerolog.Logger) *Listener {
	if idleTimeout <= 0 {
		idleTimeout = defaultSessionIdleTimeout
	}
	return &Listener{
		entryPoint:  entryPoint,
		current:     newAtomicRevision(),
		servers:     servers,
		metrics:     m,
		idleTimeout: idleTimeout,
		log:         log,
		sessions:    xsync.NewMap[string, *session](),
	}
}

func (l *Listener) Publish(rev *Revision) { l.current.Store(rev) }

// Serve reads datagrams off conn until it errors, routing each to its
// session's upstream connection (creating one on the client's first
// packet) and relaying upstream responses back through conn.
func (l *Listener) Serve(conn *net.UDPConn) error {
	go l.sweepLoop()

	buf := make([]byte, 65507)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		l.route(conn, clientAddr, buf[:n])
	}
}

func (l *Listener) route(conn *net.UDPConn, clientAddr *net.UDPAddr, payload []byte) {
	key := clientAddr.String()
	sess, ok := l.sessions.Load(key)
	if !ok {
		var err error
		sess, err = l.newSession(conn, clientAddr)
		if err != nil {
			l.log.Warn().Err(err).Str("client", key).Msg("l4udp: session setup failed")
			return
		}
		l.sessions.Store(key, sess)
		if l.metrics != nil {
			l.metrics.SetUDPSessions(l.sessions.Size())
		}
	}
	sess.lastActive.Store(time.Now().UnixNano())
	if _, err := sess.upstreamConn.Write(payload); err != nil {
		l.log.Debug().Err(err).Str("client", key).Msg("l4udp: write to upstream failed")
	}
}

func (l *Listener) newSession(conn *net.UDPConn, clientAddr *net.UDPAddr) (*session, error) {
	rev := l.current.Load()
	if rev == nil {
		return nil, errNoRevision
	}
	req := &model.Request{ClientIP: clientAddr.IP.String()}
	route := rev.Table.Match(l.entryPoint, req)
	if route == nil {
		return nil, errNoRoute
	}
	svc := rev.Catalog[route.Service]
	if svc == nil {
		return nil, errNoRoute
	}

	srv := pickServer(svc, clientAddr.String(), l.servers)
	if srv == nil {
		return nil, errNoEligibleServer
	}

	upstreamAddr, err := net.ResolveUDPAddr("udp", srv.Address)
	if err != nil {
		return nil, err
	}
	upstreamConn, err := net.DialUDP("udp", nil, upstreamAddr)
	if err != nil {
		l.servers.RecordResult(srv.ID, false)
		return nil, err
	}
	l.servers.RecordResult(srv.ID, true)
	l.servers.Acquire(srv.ID)

	sess := &session{clientAddr: clientAddr, upstreamConn: upstreamConn, serverID: srv.ID}
	sess.lastActive.Store(time.Now().UnixNano())

	go l.relay(conn, sess)
	return sess, nil
}

// relay copies every datagram the session's upstream sends back to the
// client through the shared listening socket.
func (l *Listener) relay(conn *net.UDPConn, sess *session) {
	buf := make([]byte, 65507)
	for {
		n, err := sess.upstreamConn.Read(buf)
		if err != nil {
			return
		}
		sess.lastActive.Store(time.Now().UnixNano())
		if _, err := conn.WriteToUDP(buf[:n], sess.clientAddr); err != nil {
			return
		}
	}
}

// pickServer builds a rendezvous ring over svc's eligible servers and
// resolves clientKey to a stable choice, so long-lived sessions keep their
// server even as unrelated peers join or leave the set.
func pickServer(svc *model.Service, clientKey string, hv *state.ServerTable) *model.Server {
	var eligible []model.Server
	for _, s := range svc.Servers {
		if hv.Eligible(s.ID) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	ids := make([]string, len(eligible))
	byID := make(map[string]*model.Server, len(eligible))
	for i := range eligible {
		ids[i] = eligible[i].ID
		byID[eligible[i].ID] = &eligible[i]
	}
	ring := rendezvous.New(ids, func(s string) uint64 { return xxhash.Sum64String(s) })
	chosen := ring.Lookup(clientKey)
	return byID[chosen]
}

func (l *Listener) sweepLoop() {
	ticker := time.NewTicker(l.idleTimeout / 2)
	defer ticker.Stop()
	for range ticker.C {
		l.sweep()
	}
}

func (l *Listener) sweep() {
	cutoff := time.Now().Add(-l.idleTimeout).UnixNano()
	var dead []string
	l.sessions.Range(func(key string, sess *session) bool {
		if sess.lastActive.Load() < cutoff {
			dead = append(dead, key)
		}
		return true
	})
	for _, key := range dead {
		if sess, ok := l.sessions.LoadAndDelete(key); ok {
			l.closeSession(sess)
		}
	}
	if l.metrics != nil {
		l.metrics.SetUDPSessions(l.sessions.Size())
	}
}

func (l *Listener) closeSession(sess *session) {
	if sess.closed.CompareAndSwap(false, true) {
		_ = sess.upstreamConn.Close()
		l.servers.Release(sess.serverID)
	}
}
