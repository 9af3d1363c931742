package main

import (
	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/certs"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/config"
)

// buildResolvers turns a File's tls.certificates[] and
// certificatesResolvers{} blocks into the named certs.Resolver instances a
// TLS profile's certResolver field selects by name. "default" always names
// the static resolver built from tls.certificates[], mirroring Traefik's
// own default resolver name; an empty certResolver on a profile resolves to
// "default" too.
func buildResolvers(f *config.File, log zerolog.Logger) (map[string]certs.Resolver, error) {
	out := make(map[string]certs.Resolver, len(f.CertificatesResolvers)+1)

	if len(f.TLS.Certificates) > 0 {
		sources := make([]certs.CertSource, len(f.TLS.Certificates))
		for i, c := range f.TLS.Certificates {
			sources[i] = certs.CertSource{CertFile: c.CertFile, KeyFile: c.KeyFile, SNI: c.SNI}
		}
		resolver, err := certs.NewStaticResolver(sources)
		if err != nil {
			return nil, err
		}
		out["default"] = resolver
	}

	for name, r := range f.CertificatesResolvers {
		if r.ACME == nil {
			continue
		}
		out[name] = certs.NewACMEStub(r.ACME.Email, r.ACME.Storage, r.ACME.CAServer)
	}

	return out, nil
}

// resolverFor picks the Resolver a TLS profile names, defaulting to the
// static "default" resolver when the profile leaves certResolver empty.
func resolverFor(resolvers map[string]certs.Resolver, profileCertResolver string) certs.Resolver {
	name := profileCertResolver
	if name == "" {
		name = "default"
	}
	return resolvers[name]
}
