// Package proxy is the L7 terminator (spec.md §4.2): the innermost link of
// every HTTP router's middleware chain, responsible for picking a server
// off the router's service, forwarding the request upstream through
// internal/forward's connection pool, and copying the response back.
// It generalizes the teacher's handler.Gateway.ServeHTTP request lifecycle
// (header hygiene, X-Forwarded-* stamping, trailer passthrough, passive
// health feedback) from a single hard-coded balancer call to dispatch
// against any of the four service kinds internal/reload compiles.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/apierr"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/forward"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/lb"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/middleware"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
)

// Terminator builds the per-service Handler internal/reload wires as the
// last link of every router's chain. One Terminator is shared by every
// compiled revision; what varies per revision is the ServiceResolver and
// Service table a Handler closure captures at build time.
type Terminator struct {
	servers    *state.ServerTable
	transports *forward.Registry
	metrics    *metrics.Registry
	log        zerolog.Logger
}

func NewTerminator(servers *state.ServerTable, transports *forward.Registry, m *metrics.Registry, log zerolog.Logger) *Terminator {
	return &Terminator{servers: servers, transports: transports, metrics: m, log: log}
}

// Handler matches internal/reload.TerminalFactory.
func (t *Terminator) Handler(registry lb.ServiceResolver, services map[string]*model.Service, serviceName string) middleware.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		svc, ok := services[serviceName]
		if !ok {
			err := fmt.Errorf("proxy: unknown service %q", serviceName)
			apierr.Render(w, t.log, apierr.Upstream(err))
			return err
		}
		bal, ok := registry.Balancer(serviceName)
		if !ok {
			err := fmt.Errorf("proxy: no balancer for service %q", serviceName)
			apierr.Render(w, t.log, apierr.Upstream(err))
			return err
		}

		if mirror, ok := bal.(*lb.Mirror); ok {
			t.fireMirror(ctx, r, mirror)
		}

		srv, ticket := t.pick(bal, r)
		if srv == nil {
			err := fmt.Errorf("proxy: no eligible server for service %q", serviceName)
			apierr.Render(w, t.log, apierr.Upstream(err))
			return err
		}
		if ticket != "" && svc.Sticky != nil {
			http.SetCookie(w, &http.Cookie{
				Name:     svc.Sticky.CookieName,
				Value:    ticket,
				Secure:   svc.Sticky.CookieSecure,
				HttpOnly: svc.Sticky.CookieHTTPOnly,
				Path:     "/",
			})
		}

		t.servers.Acquire(srv.ID)
		defer t.servers.Release(srv.ID)

		upstreamURL := targetURL(srv, r)
		reqUp, err := http.NewRequestWithContext(ctx, r.Method, upstreamURL.String(), r.Body)
		if err != nil {
			apierr.Render(w, t.log, apierr.New(apierr.KindProtocol, "bad request", err))
			return err
		}
		reqUp.Header = cloneHeader(r.Header)
		dropHopByHop(reqUp.Header)
		if upgrade := r.Header.Get("Upgrade"); upgrade != "" && isUpgradeRequest(r) {
			reqUp.Header.Set("Connection", "Upgrade")
			reqUp.Header.Set("Upgrade", upgrade)
		}
		stampForwardedHeaders(reqUp.Header, r)
		if svc.PassHostHeader {
			reqUp.Host = r.Host
		} else {
			reqUp.Host = srv.URL.Host
		}

		tr := t.transportFor(svc, srv)
		resp, err := tr.RoundTrip(reqUp)
		if err != nil {
			t.servers.RecordResult(srv.ID, false)
			if t.metrics != nil {
				t.metrics.IncUpstreamError(serviceName, srv.ID)
			}
			apierr.Render(w, t.log, apierr.Upstream(err))
			return err
		}
		defer resp.Body.Close()

		t.servers.RecordResult(srv.ID, resp.StatusCode < 500)

		if resp.StatusCode == http.StatusSwitchingProtocols {
			return spliceUpgrade(w, resp)
		}

		dropHopByHop(resp.Header)
		copyHeaders(w.Header(), resp.Header)
		if len(resp.Trailer) > 0 {
			keys := make([]string, 0, len(resp.Trailer))
			for k := range resp.Trailer {
				keys = append(keys, k)
			}
			w.Header().Set("Trailer", strings.Join(keys, ","))
		}
		w.WriteHeader(resp.StatusCode)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if isGRPCResponse(resp) {
			_, _ = io.Copy(newFlushWriter(w), resp.Body)
		} else {
			_, _ = io.Copy(w, resp.Body)
		}
		for k, vv := range resp.Trailer {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		return nil
	}
}

// pick resolves a server for r against bal, threading through Sticky's
// cookie-aware Pick when the balancer is sticky-wrapped.
func (t *Terminator) pick(bal lb.Balancer, r *http.Request) (*model.Server, string) {
	if sticky, ok := bal.(*lb.Sticky); ok {
		return sticky.Pick(r, t.servers)
	}
	return bal.Next(t.servers), ""
}

func (t *Terminator) fireMirror(ctx context.Context, r *http.Request, mirror *lb.Mirror) {
	var buf []byte
	if r.Body != nil {
		buf, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(buf))
	}
	bodyFn := func() io.ReadCloser { return io.NopCloser(bytes.NewReader(buf)) }
	mirror.Fire(ctx, r, bodyFn, t.servers)
}

// transportFor picks the pooled RoundTripper for srv, preferring a
// ServersTransport registered under the service's own name (custom TLS
// material) and falling back to the protocol hint's default pool.
func (t *Terminator) transportFor(svc *model.Service, srv *model.Server) http.RoundTripper {
	if svc.ServersTransport != "" {
		if rt := t.transports.Get(svc.ServersTransport); rt != nil {
			return rt
		}
	}
	switch srv.ProtocolHint {
	case model.ProtoH2C:
		return t.transports.Get(forward.ProtoH2C)
	case model.ProtoH2:
		return t.transports.Get(forward.ProtoAuto)
	default:
		return t.transports.Get(forward.ProtoHTTP1)
	}
}

func targetURL(srv *model.Server, r *http.Request) *url.URL {
	u := new(url.URL)
	*u = *srv.URL
	u.Path = joinSlash(srv.URL.Path, r.URL.Path)
	u.RawQuery = r.URL.RawQuery
	return u
}

func joinSlash(a, b string) string {
	as := strings.HasSuffix(a, "/")
	bs := strings.HasPrefix(b, "/")
	switch {
	case as && bs:
		return a + b[1:]
	case !as && !bs:
		return a + "/" + b
	default:
		return a + b
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		cc := make([]string, len(vv))
		copy(cc, vv)
		out[k] = cc
	}
	return out
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

var hopByHop = map[string]struct{}{
	"Connection":          {},
	"Proxy-Connection":    {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"TE":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

func dropHopByHop(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, k := range strings.Split(f, ",") {
			k = textproto.TrimString(k)
			if k != "" {
				h.Del(k)
			}
		}
	}
	for k := range hopByHop {
		if k == "TE" && h.Get("TE") == "trailers" {
			continue
		}
		h.Del(k)
	}
}

func stampForwardedHeaders(h http.Header, r *http.Request) {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && ip != "" {
		if prior := h.Get("X-Forwarded-For"); prior != "" {
			h.Set("X-Forwarded-For", prior+", "+ip)
		} else {
			h.Set("X-Forwarded-For", ip)
		}
	}
	if r.TLS != nil {
		h.Set("X-Forwarded-Proto", "https")
	} else {
		h.Set("X-Forwarded-Proto", "http")
	}
	h.Set("X-Forwarded-Host", r.Host)
	if _, port, err := net.SplitHostPort(r.Host); err == nil && port != "" {
		h.Set("X-Forwarded-Port", port)
	} else if r.TLS != nil {
		h.Set("X-Forwarded-Port", "443")
	} else {
		h.Set("X-Forwarded-Port", "80")
	}
}
