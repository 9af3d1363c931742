// Package model holds the shared, read-only data graph produced by a
// configuration reload: entry points, router tables, services, and the
// rule predicates compiled for them. Instances are owned exclusively by
// internal/reload and published through internal/state's atomic pointer;
// every other package only ever reads them.
package model

import (
	"net/url"
	"time"
)

// Transport is the network transport an entry point listens on.
type Transport string

const (
	TransportTCP Transport = "tcp"
	TransportUDP Transport = "udp"
)

// ServerStatus is the current health classification of a Server.
type ServerStatus int

const (
	StatusHealthy ServerStatus = iota
	StatusDegraded
	StatusUnhealthy
	StatusDraining
)

func (s ServerStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// ProtocolHint tells the connection pool which transport to speak to a
// server's declared scheme.
type ProtocolHint string

const (
	ProtoH1  ProtocolHint = "h1"
	ProtoH2  ProtocolHint = "h2"
	ProtoH2C ProtocolHint = "h2c"
)

// Server is one upstream destination. Lifetime is tied to the owning
// Service; its identity (Scheme+Host) is stable across reloads and is used
// as the key into the out-of-snapshot ServerState table.
type Server struct {
	ID           string
	URL          *url.URL
	Address      string // used for raw TCP/UDP servers instead of URL
	Weight       int    // >=0; 0 is only valid inside a disabled server
	Scheme       string
	ProtocolHint ProtocolHint
}

// ServerID derives the stable identity used to key shared ServerState.
func ServerID(scheme, host string) string {
	return scheme + "://" + host
}

// EntryPoint is a named listener binding.
type EntryPoint struct {
	Name                 string
	Address              string
	Transport            Transport
	TLSProfile           string
	KeepAliveMaxRequests int
	KeepAliveMaxTime     time.Duration
	IdleTimeout          time.Duration
	ForwardedHeaders     ForwardedHeadersPolicy
}

// ForwardedHeadersPolicy controls X-Forwarded-*/Forwarded header handling.
type ForwardedHeadersPolicy struct {
	Insecure    bool     // trust all incoming forwarded headers
	TrustedIPs  []string // CIDRs allowed to set forwarded headers
	ConnStrip   []string // extra hop-by-hop header names to strip
}

// RuleMatcher is satisfied by internal/rule's compiled predicate so that
// internal/model need not import internal/rule (which would be a cycle,
// since rule.Request references model types).
type RuleMatcher interface {
	Match(req *Request) bool
	Weight() int
}

// Request is the protocol-agnostic descriptor rule predicates evaluate
// against. internal/proxy, internal/l4tcp and internal/l4udp each build one
// of these from their native request/connection shape.
type Request struct {
	Host     string
	Path     string // escaped, un-decoded path
	RawQuery string
	Method   string
	Headers  map[string][]string
	ClientIP string
	SNI      string
}

// Router is an L7 router: predicate -> service, scoped to one or more entry
// points, with an ordered middleware chain.
type Router struct {
	Name        string
	EntryPoints []string
	Match       RuleMatcher
	Service     string
	Middlewares []string
	Priority    int
	TLSProfile  string
}

// TCPRouter is restricted to HostSNI/ClientIP/* predicates.
type TCPRouter struct {
	Name        string
	EntryPoints []string
	Match       RuleMatcher
	Service     string
	Middlewares []string
	Priority    int
	Passthrough bool
}

// UDPRouter is restricted to ClientIP/* predicates.
type UDPRouter struct {
	Name        string
	EntryPoints []string
	Match       RuleMatcher
	Service     string
	Middlewares []string
}

// ServiceKind tags the variant held by Service.
type ServiceKind int

const (
	ServiceLoadBalancer ServiceKind = iota
	ServiceWeighted
	ServiceMirroring
	ServiceFailover
)

// WeightedChild is one member of a Weighted service.
type WeightedChild struct {
	Service string
	Weight  int
}

// MirrorTarget is one member of a Mirroring service.
type MirrorTarget struct {
	Service string
	Percent float64
}

// HealthCheckConfig configures an active health check.
type HealthCheckConfig struct {
	Path             string
	Port             int
	Interval         time.Duration
	Timeout          time.Duration
	FollowRedirects  bool
	Headers          map[string]string
	Mode             string // "http" | "grpc"
	FailureThreshold int    // carried from config; not read by internal/health
	SuccessThreshold int    // carried from config; not read by internal/health
}

// StickyConfig enables sticky sessions on a LoadBalancer service.
type StickyConfig struct {
	CookieName     string
	CookieSecure   bool
	CookieHTTPOnly bool
	TTL            time.Duration
}

// CircuitBreakerConfig configures the breaker predicate evaluated per
// checkPeriod against live service metrics.
type CircuitBreakerConfig struct {
	Expression       string
	CheckPeriod      time.Duration
	FallbackDuration time.Duration
	RecoveryDuration time.Duration
	HalfOpenProbes   int
}

// Service is a tagged union over the four service kinds spec.md defines.
type Service struct {
	Name  string
	Kind  ServiceKind
	Ref   string // stable reference used by weighted/mirroring/failover graphs

	// ServiceLoadBalancer fields
	Servers           []Server
	Policy            string // "round_robin"|"smooth_wrr"|"least_conn"|"random"
	Sticky            *StickyConfig
	HealthCheck       *HealthCheckConfig
	PassHostHeader    bool
	ServersTransport  string
	CircuitBreaker    *CircuitBreakerConfig

	// ServiceWeighted fields
	WeightedChildren []WeightedChild

	// ServiceMirroring fields
	Primary     string
	Mirrors     []MirrorTarget
	MirrorBody  bool

	// ServiceFailover fields
	Fallback string
}

// MiddlewareRef names a configured middleware instance plus its kind-specific
// options; internal/middleware decodes Options into the concrete config.
type MiddlewareRef struct {
	Name    string
	Kind    string
	Options map[string]any
}

// TLSProfile names the server-side TLS configuration an entry point uses.
type TLSProfile struct {
	Name               string
	MinVersion         string
	CertResolver       string
	ClientAuthRequired bool
}

// RuntimeSnapshot is the immutable, fully compiled configuration revision.
// One is built per reload by internal/reload and shared via an atomic
// pointer in internal/state; it is never mutated after publication.
type RuntimeSnapshot struct {
	Revision     int64
	EntryPoints  map[string]*EntryPoint
	HTTPRouters  []Router
	TCPRouters   []TCPRouter
	UDPRouters   []UDPRouter
	Services     map[string]*Service
	Middlewares  map[string]*MiddlewareRef
	TLSProfiles  map[string]*TLSProfile
}

// Session is a UDP session's routing state, keyed by (clientAddr,
// entryPoint).
type Session struct {
	ClientAddr    string
	EntryPoint    string
	ChosenServer  string
	LastActive    time.Time
}
