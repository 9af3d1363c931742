// Package forward is the connection-pool layer (§4.6): a registry of named,
// reusable http.RoundTrippers keyed by protocol hint, extended with a
// multi-dimension PoolKey (scheme, host, port, protocolHint, sniHost) so the
// same registry can serve per-server pools instead of one transport per
// service name.
package forward

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// Well-known transport names.
const (
	ProtoHTTP1 = "http1" // strictly HTTP/1.1 to upstream
	ProtoAuto  = "auto"  // ALPN, allow h2 over TLS when available
	ProtoH2C   = "h2c"   // prior-knowledge HTTP/2 over plaintext
)

// Options tunes the default transports.
type Options struct {
	// Dial/keepalive
	DialTimeout   time.Duration
	DialKeepAlive time.Duration

	// Pool sizing
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	MaxConnsPerHost     int // 0 = unlimited

	// Timeouts
	TLSHandshakeTimeout   time.Duration
	ExpectContinueTimeout time.Duration
	ResponseHeaderTimeout time.Duration // optional, 0 to disable

	// TLS knobs for defaults (cluster-specific/mTLS should register their own RT)
	InsecureSkipVerify bool
	RootCAs            *x509.CertPool
}

// DefaultOptions mirrors battle-tested proxy-ish settings.
func DefaultOptions() Options {
	return Options{
		DialTimeout:           5 * time.Second,
		DialKeepAlive:         60 * time.Second,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   128,
		IdleConnTimeout:       90 * time.Second,
		MaxConnsPerHost:       0,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 0,
		InsecureSkipVerify:    false,
		RootCAs:               nil,
	}
}

// PoolKey identifies one outbound connection pool, per spec.md §4.6.
type PoolKey struct {
	Scheme       string
	Host         string
	Port         string
	ProtocolHint string
	SNIHost      string
}

// Factory returns a RoundTripper by name.
type Factory interface {
	Get(name string) http.RoundTripper
	Register(name string, rt http.RoundTripper)
	CloseIdle()
}

// Registry is a threadsafe map of named RoundTrippers.
type Registry struct {
	mu    sync.RWMutex
	store map[string]http.RoundTripper
	opts  Options
}

// NewDefaultRegistry builds a registry with DefaultOptions and pre-registers
// http1/auto/h2c.
func NewDefaultRegistry() *Registry { return NewRegistry(DefaultOptions()) }

// NewRegistry builds a registry with given options and pre-registers
// http1/auto/h2c.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		store: make(map[string]http.RoundTripper),
		opts:  opts,
	}
	r.store[ProtoHTTP1] = r.newHTTP1()
	r.store[ProtoAuto] = r.newAuto()
	r.store[ProtoH2C] = r.newH2C()
	return r
}

func (r *Registry) Get(name string) http.RoundTripper {
	r.mu.RLock()
	rt, ok := r.store[name]
	r.mu.RUnlock()
	if ok && rt != nil {
		return rt
	}
	// fallback to http1
	r.mu.RLock()
	fb := r.store[ProtoHTTP1]
	r.mu.RUnlock()
	return fb
}

func (r *Registry) Register(name string, rt http.RoundTripper) {
	if name == "" || rt == nil {
		return
	}
	r.mu.Lock()
	r.store[name] = rt
	r.mu.Unlock()
}

// RegisterCustom builds and registers a transport for proto (ProtoHTTP1,
// ProtoAuto or ProtoH2C) using tlsConfig in place of the registry's default,
// for servers that need their own TLS material (mTLS, custom CA, SNI
// override) instead of the shared default transports.
func (r *Registry) RegisterCustom(name string, tlsConfig *tls.Config, proto string) {
	var rt http.RoundTripper
	switch proto {
	case ProtoH2C:
		rt = r.newH2C()
	case ProtoAuto:
		rt = r.newAutoWithTLS(tlsConfig)
	default:
		rt = r.newHTTP1WithTLS(tlsConfig)
	}
	r.Register(name, rt)
}

// CloseIdle calls CloseIdleConnections on all http.Transport in the registry.
func (r *Registry) CloseIdle() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.store {
		if t, ok := rt.(*http.Transport); ok {
			t.CloseIdleConnections()
		}
	}
}

// --- builders ---

func (r *Registry) dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   r.opts.DialTimeout,
		KeepAlive: r.opts.DialKeepAlive,
	}
}

func (r *Registry) newHTTP1() http.RoundTripper {
	return r.newHTTP1WithTLS(nil)
}

func (r *Registry) newHTTP1WithTLS(tlsConfig *tls.Config) http.RoundTripper {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{InsecureSkipVerify: r.opts.InsecureSkipVerify, RootCAs: r.opts.RootCAs}
	}
	tlsConfig.NextProtos = []string{"http/1.1"}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           r.dialer().DialContext,
		ForceAttemptHTTP2:     false,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          r.opts.MaxIdleConns,
		MaxIdleConnsPerHost:   r.opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       r.opts.IdleConnTimeout,
		MaxConnsPerHost:       r.opts.MaxConnsPerHost,
		TLSHandshakeTimeout:   r.opts.TLSHandshakeTimeout,
		ExpectContinueTimeout: r.opts.ExpectContinueTimeout,
	}
	if r.opts.ResponseHeaderTimeout > 0 {
		tr.ResponseHeaderTimeout = r.opts.ResponseHeaderTimeout
	}
	return tr
}

func (r *Registry) newAuto() http.RoundTripper {
	return r.newAutoWithTLS(nil)
}

func (r *Registry) newAutoWithTLS(tlsConfig *tls.Config) http.RoundTripper {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{InsecureSkipVerify: r.opts.InsecureSkipVerify, RootCAs: r.opts.RootCAs}
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           r.dialer().DialContext,
		ForceAttemptHTTP2:     true, // ALPN to h2 when possible; no h2c
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          r.opts.MaxIdleConns,
		MaxIdleConnsPerHost:   r.opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       r.opts.IdleConnTimeout,
		MaxConnsPerHost:       r.opts.MaxConnsPerHost,
		TLSHandshakeTimeout:   r.opts.TLSHandshakeTimeout,
		ExpectContinueTimeout: r.opts.ExpectContinueTimeout,
	}
	if r.opts.ResponseHeaderTimeout > 0 {
		tr.ResponseHeaderTimeout = r.opts.ResponseHeaderTimeout
	}
	return tr
}

// newH2C builds a prior-knowledge HTTP/2-over-plaintext transport, used for
// servers declaring protocolHint "h2c" (spec.md §3's Server.protocolHint).
func (r *Registry) newH2C() http.RoundTripper {
	dialer := r.dialer()
	return &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
}
