package certs

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// StaticResolver serves a fixed set of certFile/keyFile pairs loaded from
// config at startup/reload, matched by their declared SNI hostnames
// (exact or "*."-prefixed wildcard). internal/reload rebuilds one of these
// on every successful reload alongside the rest of the snapshot.
type StaticResolver struct {
	byHost  map[string]*tls.Certificate
	wild    map[string]*tls.Certificate // keyed by the suffix after "*."
	fallback *tls.Certificate
}

// CertSource is one certFile/keyFile pair plus the hostnames it serves,
// mirroring config.Certificate without internal/certs importing
// internal/config (kept decoupled the same way internal/reload's
// TerminalFactory keeps internal/proxy decoupled).
type CertSource struct {
	CertFile string
	KeyFile  string
	SNI      []string
}

// NewStaticResolver loads every source's PEM pair once at build time. The
// first source with no declared SNI (or the first source overall, if every
// source declares one) becomes the fallback used when no hostname matches.
func NewStaticResolver(sources []CertSource) (*StaticResolver, error) {
	r := &StaticResolver{
		byHost: make(map[string]*tls.Certificate),
		wild:   make(map[string]*tls.Certificate),
	}
	haveBare := false
	for _, src := range sources {
		cert, err := tls.LoadX509KeyPair(src.CertFile, src.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("certs: load %s/%s: %w", src.CertFile, src.KeyFile, err)
		}
		for _, host := range src.SNI {
			host = strings.ToLower(host)
			if strings.HasPrefix(host, "*.") {
				r.wild[strings.TrimPrefix(host, "*.")] = &cert
			} else {
				r.byHost[host] = &cert
			}
		}
		if r.fallback == nil || (len(src.SNI) == 0 && !haveBare) {
			r.fallback = &cert
			haveBare = len(src.SNI) == 0
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("certs: no certificate sources configured")
	}
	return r, nil
}

// GetCertificate implements Resolver: exact host match, then wildcard
// suffix match, then the fallback certificate.
func (r *StaticResolver) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	host := strings.ToLower(hello.ServerName)
	if cert, ok := r.byHost[host]; ok {
		return cert, nil
	}
	if i := strings.IndexByte(host, '.'); i >= 0 {
		if cert, ok := r.wild[host[i+1:]]; ok {
			return cert, nil
		}
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("certs: no certificate for server name %q", hello.ServerName)
}
