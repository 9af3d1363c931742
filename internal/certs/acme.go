package certs

import (
	"crypto/tls"
	"fmt"
)

// ACMEStub satisfies Resolver so a certificatesResolvers.acme block wires
// end-to-end, but issuance/renewal against an ACME CA is an external
// collaborator this repo does not implement (spec.md's Non-goals exclude
// it). A real deployment replaces this with an autocert-backed Resolver;
// this stub exists so config validation and reload wiring can be exercised
// without one.
type ACMEStub struct {
	Email    string
	Storage  string
	CAServer string
}

func NewACMEStub(email, storage, caServer string) *ACMEStub {
	return &ACMEStub{Email: email, Storage: storage, CAServer: caServer}
}

func (a *ACMEStub) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	return nil, fmt.Errorf("certs: acme resolver not implemented, requested for %q", hello.ServerName)
}
