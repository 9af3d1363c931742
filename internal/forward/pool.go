package forward

import (
	"net"
	"net/http"
	"net/url"
	"sync"
)

// Pool hands out a RoundTripper per PoolKey, lazily creating one the first
// time a key is seen and reusing it afterwards — "keyed by (scheme, host,
// port, protocolHint, sniHost)" per spec.md §4.6. A dial failure is never
// cached: Get always returns the same long-lived transport for a key, and
// it's the transport's own dialer (not this pool) that decides whether to
// open a fresh connection.
type Pool struct {
	reg *Registry

	mu    sync.RWMutex
	byKey map[PoolKey]string // PoolKey -> registered transport name
}

func NewPool(reg *Registry) *Pool {
	return &Pool{reg: reg, byKey: make(map[PoolKey]string)}
}

// KeyFor derives a PoolKey from a server URL and protocol hint.
func KeyFor(u *url.URL, protocolHint, sniHost string) PoolKey {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		if u.Scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return PoolKey{Scheme: u.Scheme, Host: host, Port: port, ProtocolHint: protocolHint, SNIHost: sniHost}
}

// Get returns the transport for key, creating and registering one on first
// use according to key.ProtocolHint.
func (p *Pool) Get(key PoolKey) http.RoundTripper {
	p.mu.RLock()
	name, ok := p.byKey[key]
	p.mu.RUnlock()
	if ok {
		return p.reg.Get(name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if name, ok = p.byKey[key]; ok {
		return p.reg.Get(name)
	}
	name = poolName(key)
	p.byKey[key] = name

	switch key.ProtocolHint {
	case "h2c":
		p.reg.Register(name, p.reg.Get(ProtoH2C))
	case "h2":
		p.reg.Register(name, p.reg.Get(ProtoAuto))
	default:
		p.reg.Register(name, p.reg.Get(ProtoHTTP1))
	}
	return p.reg.Get(name)
}

func poolName(key PoolKey) string {
	return key.Scheme + "|" + key.Host + "|" + key.Port + "|" + key.ProtocolHint + "|" + key.SNIHost
}

// DialAddr joins host and port the way net.JoinHostPort expects, for
// callers (internal/proxy, internal/l4tcp) that need to dial a server's raw
// address directly (e.g. for health probes) instead of through a
// RoundTripper.
func DialAddr(key PoolKey) string {
	return net.JoinHostPort(key.Host, key.Port)
}
