// Package certs implements spec.md's CertificateResolver collaborator: an
// entry point's TLS listener asks a Resolver for a *tls.Certificate given
// the ClientHello it just received, rather than the listener owning
// certificate material itself. This keeps hot-reloadable cert bundles
// (static.go) and an eventual ACME resolver behind the same interface the
// teacher never needed because it had no TLS termination of its own.
package certs

import "crypto/tls"

// Resolver returns the certificate to present for a given ClientHello. It
// is the seam cmd/trafficcop's TLS entry-point listeners call through
// (internal/l4tcp passes TLS through and never terminates it), and is what
// an *tls.Config.GetCertificate is built from.
type Resolver interface {
	GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error)
}

// TLSConfigFor builds a *tls.Config that resolves certificates through r,
// honoring profile's minimum version and client-auth requirement.
func TLSConfigFor(r Resolver, minVersion uint16, requireClientAuth bool) *tls.Config {
	cfg := &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: r.GetCertificate,
	}
	if requireClientAuth {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}

// ParseMinVersion maps spec.md's tls.options.minVersion strings to the
// stdlib constants, defaulting to TLS 1.2.
func ParseMinVersion(v string) uint16 {
	switch v {
	case "TLS1.3":
		return tls.VersionTLS13
	case "TLS1.1":
		return tls.VersionTLS11
	case "TLS1.0":
		return tls.VersionTLS10
	default:
		return tls.VersionTLS12
	}
}
