// Package config is the provider-agnostic configuration object model of
// spec.md §6: one YAML file deserializes into a File, which internal/reload
// validates and compiles into a model.RuntimeSnapshot. Field names are
// case-preserved camelCase, mirroring the teacher's rawConfig/Config split
// generalized to the full entryPoints/http/tcp/udp/tls surface.
package config

// File is the root configuration document.
type File struct {
	EntryPoints           map[string]EntryPoint          `yaml:"entryPoints"`
	HTTP                   HTTPConfig                     `yaml:"http"`
	TCP                    TCPConfig                      `yaml:"tcp"`
	UDP                    UDPConfig                      `yaml:"udp"`
	TLS                    TLSConfig                      `yaml:"tls"`
	CertificatesResolvers  map[string]CertificatesResolver `yaml:"certificatesResolvers"`
	Metrics                MetricsConfig                  `yaml:"metrics"`
	Cluster                ClusterConfig                   `yaml:"cluster"`
	API                    APIConfig                       `yaml:"api"`
	AccessLog              AccessLogConfig                 `yaml:"accessLog"`
}

// EntryPoint is a named listener binding.
type EntryPoint struct {
	Address          string                 `yaml:"address"`
	Transport        string                 `yaml:"transport"` // "tcp" | "udp", default "tcp"
	ForwardedHeaders ForwardedHeadersConfig `yaml:"forwardedHeaders"`
	HTTP             EntryPointHTTP         `yaml:"http"`
	KeepAlive        KeepAliveConfig        `yaml:"keepAlive"`
}

type ForwardedHeadersConfig struct {
	Insecure   bool     `yaml:"insecure"`
	TrustedIPs []string `yaml:"trustedIPs"`
}

type EntryPointHTTP struct {
	Redirections *Redirections `yaml:"redirections,omitempty"`
	TLS          string        `yaml:"tls,omitempty"` // TLS profile name
	Middlewares  []string      `yaml:"middlewares,omitempty"`
}

type Redirections struct {
	EntryPoint  string `yaml:"entryPoint,omitempty"`
	Scheme      string `yaml:"scheme,omitempty"`
	Permanent   bool   `yaml:"permanent,omitempty"`
}

type KeepAliveConfig struct {
	MaxRequests int           `yaml:"maxRequests"`
	MaxTime     Duration `yaml:"maxTime"`
	IdleTimeout Duration `yaml:"idleTimeout"`
	RequestAcceptGraceTimeout Duration `yaml:"requestAcceptGraceTimeout"`
	GraceTimeout              Duration `yaml:"graceTimeout"`
}

// HTTPConfig is the L7 table: routers/services/middlewares/serversTransports.
type HTTPConfig struct {
	Routers           map[string]HTTPRouter    `yaml:"routers"`
	Services          map[string]Service       `yaml:"services"`
	Middlewares       map[string]Middleware    `yaml:"middlewares"`
	ServersTransports map[string]ServersTransport `yaml:"serversTransports"`
}

type HTTPRouter struct {
	EntryPoints []string `yaml:"entryPoints"`
	Rule        string   `yaml:"rule"`
	Service     string   `yaml:"service"`
	Middlewares []string `yaml:"middlewares"`
	Priority    int      `yaml:"priority"`
	TLS         string   `yaml:"tls"`
}

type TCPConfig struct {
	Routers  map[string]TCPRouter `yaml:"routers"`
	Services map[string]Service   `yaml:"services"`
}

type TCPRouter struct {
	EntryPoints []string `yaml:"entryPoints"`
	Rule        string   `yaml:"rule"`
	Service     string   `yaml:"service"`
	Middlewares []string `yaml:"middlewares"`
	Priority    int      `yaml:"priority"`
	Passthrough bool     `yaml:"passthrough"`
}

type UDPConfig struct {
	Routers  map[string]UDPRouter `yaml:"routers"`
	Services map[string]Service   `yaml:"services"`
}

type UDPRouter struct {
	EntryPoints []string `yaml:"entryPoints"`
	Rule        string   `yaml:"rule"`
	Service     string   `yaml:"service"`
	Middlewares []string `yaml:"middlewares"`
}

// Service is a tagged-union-by-presence service definition: exactly one of
// LoadBalancer/Weighted/Mirroring/Failover should be set.
type Service struct {
	LoadBalancer *LoadBalancerService `yaml:"loadBalancer,omitempty"`
	Weighted     *WeightedService     `yaml:"weighted,omitempty"`
	Mirroring    *MirroringService    `yaml:"mirroring,omitempty"`
	Failover     *FailoverService     `yaml:"failover,omitempty"`
}

type LoadBalancerService struct {
	Servers          []Server           `yaml:"servers"`
	Policy           string             `yaml:"policy"` // "round_robin"|"smooth_wrr"|"least_conn"|"random"
	Sticky           *StickyConfig      `yaml:"sticky,omitempty"`
	HealthCheck      *HealthCheckConfig `yaml:"healthCheck,omitempty"`
	PassHostHeader   *bool              `yaml:"passHostHeader,omitempty"`
	ServersTransport string             `yaml:"serversTransport,omitempty"`
	CircuitBreaker   *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty"`
}

type Server struct {
	URL    string `yaml:"url"`
	Weight int    `yaml:"weight"`
}

type StickyConfig struct {
	CookieName     string        `yaml:"cookieName"`
	CookieSecure   bool          `yaml:"cookieSecure"`
	CookieHTTPOnly bool          `yaml:"cookieHTTPOnly"`
	TTL            Duration `yaml:"ttl"`
}

type HealthCheckConfig struct {
	Path             string            `yaml:"path"`
	Port             int               `yaml:"port"`
	Interval         Duration     `yaml:"interval"`
	Timeout          Duration     `yaml:"timeout"`
	FollowRedirects  bool              `yaml:"followRedirects"`
	Headers          map[string]string `yaml:"headers"`
	Mode             string            `yaml:"mode"` // "http" | "grpc"
	FailureThreshold int               `yaml:"failureThreshold"`
	SuccessThreshold int               `yaml:"successThreshold"`
}

type CircuitBreakerConfig struct {
	Expression       string        `yaml:"expression"`
	CheckPeriod      Duration `yaml:"checkPeriod"`
	FallbackDuration Duration `yaml:"fallbackDuration"`
	RecoveryDuration Duration `yaml:"recoveryDuration"`
	HalfOpenProbes   int           `yaml:"halfOpenProbes"`
}

type WeightedService struct {
	Services []WeightedChild `yaml:"services"`
}

type WeightedChild struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

type MirroringService struct {
	Service string         `yaml:"service"`
	Mirrors []MirrorTarget `yaml:"mirrors"`
	MirrorBody bool        `yaml:"mirrorBody"`
}

type MirrorTarget struct {
	Name    string  `yaml:"name"`
	Percent float64 `yaml:"percent"`
}

type FailoverService struct {
	Service  string `yaml:"service"`
	Fallback string `yaml:"fallback"`
}

type ServersTransport struct {
	InsecureSkipVerify bool     `yaml:"insecureSkipVerify"`
	ServerName         string   `yaml:"serverName"`
	RootCAs            []string `yaml:"rootCAs"`
	ClientCert         string   `yaml:"clientCert,omitempty"`
	ClientKey          string   `yaml:"clientKey,omitempty"`
}

// Middleware is a named middleware instance; whichever one of the nested
// option structs is set selects its kind, mirroring how Traefik's dynamic config
// keys a middleware block by the middleware's own name.
type Middleware struct {
	RateLimit       *RateLimitOptions       `yaml:"rateLimit,omitempty"`
	Headers         *HeadersOptions         `yaml:"headers,omitempty"`
	Retry           *RetryOptions           `yaml:"retry,omitempty"`
	Compress        *CompressOptions        `yaml:"compress,omitempty"`
	IPFilter        *IPFilterOptions        `yaml:"ipFilter,omitempty"`
	BasicAuth       *BasicAuthOptions       `yaml:"basicAuth,omitempty"`
	DigestAuth      *DigestAuthOptions      `yaml:"digestAuth,omitempty"`
	ForwardAuth     *ForwardAuthOptions     `yaml:"forwardAuth,omitempty"`
	JWT             *JWTOptions             `yaml:"jwt,omitempty"`
	StripPrefix     *StripPrefixOptions     `yaml:"stripPrefix,omitempty"`
	AddPrefix       *AddPrefixOptions       `yaml:"addPrefix,omitempty"`
	ReplacePath     *ReplacePathOptions     `yaml:"replacePath,omitempty"`
	ReplacePathRegex *ReplacePathRegexOptions `yaml:"replacePathRegex,omitempty"`
	StripPrefixRegex *StripPrefixRegexOptions `yaml:"stripPrefixRegex,omitempty"`
	RedirectScheme  *RedirectSchemeOptions  `yaml:"redirectScheme,omitempty"`
	RedirectRegex   *RedirectRegexOptions   `yaml:"redirectRegex,omitempty"`
	Errors          *ErrorsOptions          `yaml:"errors,omitempty"`
	Buffering       *BufferingOptions       `yaml:"buffering,omitempty"`
	InFlightReq     *InFlightReqOptions     `yaml:"inFlightReq,omitempty"`
	GRPCWeb         *GRPCWebOptions         `yaml:"grpcWeb,omitempty"`
	Chain           *ChainOptions           `yaml:"chain,omitempty"`
}

type RateLimitOptions struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
	KeyBy             string  `yaml:"keyBy"`
}

type HeadersOptions struct {
	CustomRequestHeaders      map[string]string `yaml:"customRequestHeaders"`
	CustomResponseHeaders     map[string]string `yaml:"customResponseHeaders"`
	RequestHeadersToRemove    []string          `yaml:"requestHeadersToRemove"`
	ResponseHeadersToRemove   []string          `yaml:"responseHeadersToRemove"`
	AccessControlAllowMethods []string          `yaml:"accessControlAllowMethods"`
	AccessControlAllowOrigin  string            `yaml:"accessControlAllowOriginList"`
	AccessControlAllowHeaders []string          `yaml:"accessControlAllowHeaders"`
	AccessControlMaxAge       int               `yaml:"accessControlMaxAge"`
	AddVaryOrigin             bool              `yaml:"addVaryOrigin"`
}

type RetryOptions struct {
	Attempts     int           `yaml:"attempts"`
	InitialDelay Duration `yaml:"initialInterval"`
}

type CompressOptions struct {
	MinResponseBodyBytes int      `yaml:"minResponseBodyBytes"`
	ExcludedContentTypes []string `yaml:"excludedContentTypes"`
}

type IPFilterOptions struct {
	Allow []string `yaml:"sourceRange"`
	Deny  []string `yaml:"denyRange"`
	Depth int      `yaml:"ipDepth"`
}

type BasicAuthOptions struct {
	Users map[string]string `yaml:"users"`
	Realm string            `yaml:"realm"`
}

type DigestAuthOptions struct {
	Users    map[string]string `yaml:"users"`
	Realm    string            `yaml:"realm"`
	NonceTTL Duration     `yaml:"nonceTTL"`
}

type ForwardAuthOptions struct {
	Address             string        `yaml:"address"`
	TrustForwardHeader  bool          `yaml:"trustForwardHeader"`
	AuthResponseHeaders []string      `yaml:"authResponseHeaders"`
	Timeout             Duration `yaml:"timeout"`
}

type JWTOptions struct {
	Secret         string            `yaml:"secret"`
	Algorithm      string            `yaml:"algorithm"`
	RequiredClaims map[string]string `yaml:"requiredClaims"`
}

type StripPrefixOptions struct {
	Prefix string `yaml:"prefix"`
}
type AddPrefixOptions struct {
	Prefix string `yaml:"prefix"`
}
type ReplacePathOptions struct {
	Path string `yaml:"path"`
}
type ReplacePathRegexOptions struct {
	Regex       string `yaml:"regex"`
	Replacement string `yaml:"replacement"`
}
type StripPrefixRegexOptions struct {
	Regex string `yaml:"regex"`
}

type RedirectSchemeOptions struct {
	Scheme    string `yaml:"scheme"`
	Port      string `yaml:"port"`
	Permanent bool   `yaml:"permanent"`
}
type RedirectRegexOptions struct {
	Regex       string `yaml:"regex"`
	Replacement string `yaml:"replacement"`
	Permanent   bool   `yaml:"permanent"`
}

type ErrorsOptions struct {
	StatusMin     int    `yaml:"statusMin"`
	StatusMax     int    `yaml:"statusMax"`
	QueryTemplate string `yaml:"query"`
	Service       string `yaml:"service"`
}

type BufferingOptions struct {
	MaxRequestBodyBytes  int64 `yaml:"maxRequestBodyBytes"`
	MaxResponseBodyBytes int64 `yaml:"maxResponseBodyBytes"`
}

type InFlightReqOptions struct {
	Amount int64 `yaml:"amount"`
}

type GRPCWebOptions struct{}

type ChainOptions struct {
	Middlewares []string `yaml:"middlewares"`
}

// TLSConfig is the tls{} block: named certificate bundles plus per-profile
// options (min version, client auth).
type TLSConfig struct {
	Certificates []Certificate         `yaml:"certificates"`
	Options      map[string]TLSOptions `yaml:"options"`
}

type Certificate struct {
	CertFile string   `yaml:"certFile"`
	KeyFile  string   `yaml:"keyFile"`
	SNI      []string `yaml:"sni,omitempty"`
}

type TLSOptions struct {
	MinVersion         string `yaml:"minVersion"`
	CertResolver       string `yaml:"certResolver,omitempty"`
	ClientAuthRequired bool   `yaml:"clientAuthRequired"`
}

type CertificatesResolver struct {
	ACME *ACMEConfig `yaml:"acme,omitempty"`
}

// ACMEConfig is accepted and parsed for forward-compatibility but ACME
// issuance itself is an external collaborator per spec.md's Non-goals.
type ACMEConfig struct {
	Email      string `yaml:"email"`
	Storage    string `yaml:"storage"`
	CAServer   string `yaml:"caServer,omitempty"`
}

type MetricsConfig struct {
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
}

type PrometheusConfig struct {
	Address              string    `yaml:"address"`
	AddEntryPointsLabels bool      `yaml:"addEntryPointsLabels"`
	AddServicesLabels    bool      `yaml:"addServicesLabels"`
	AddRoutersLabels     bool      `yaml:"addRoutersLabels"`
	Buckets              []float64 `yaml:"buckets"`
	EntryPoint           string    `yaml:"entryPoint,omitempty"`
}

type ClusterConfig struct {
	Enabled           bool          `yaml:"enabled"`
	NodeID            string        `yaml:"nodeId,omitempty"`
	AdvertiseAddress  string        `yaml:"advertiseAddress"`
	HeartbeatInterval Duration `yaml:"heartbeatInterval"`
	NodeTimeout       Duration `yaml:"nodeTimeout"`
	DrainTimeout      Duration `yaml:"drainTimeout"`
	Store             *StoreConfig  `yaml:"store,omitempty"`
}

type StoreConfig struct {
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

type RedisConfig struct {
	Endpoints []string      `yaml:"endpoints"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db"`
	RootKey   string        `yaml:"rootKey"`
	Timeout   Duration `yaml:"timeout"`
}

type APIConfig struct {
	Dashboard bool   `yaml:"dashboard"`
	Debug     bool   `yaml:"debug"`
	BasePath  string `yaml:"basePath"`
	Insecure  bool   `yaml:"insecure"`
}

type AccessLogConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Sampling float64  `yaml:"sampling"`
	Fields   []string `yaml:"fields"`
	FilePath string   `yaml:"filePath"`
}
