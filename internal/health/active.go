package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/model"
)

// Prober is implemented by PassiveTracker (and any ServerState wrapper) so
// the active checker can feed its probe results into the same eligibility
// state passive tracking uses.
type Prober interface {
	RecordResult(serverID string, success bool)
}

// ActiveChecker runs one cron-scheduled probe job per server of every
// service that declares a HealthCheckConfig (spec.md §4.7), so each server
// is probed independently of the others; a probe timeout or non-2xx/3xx
// response counts as a failure. Mode "grpc" only checks that a TCP
// connection to the server opens; it issues no gRPC health-check RPC.
type ActiveChecker struct {
	cron   *cron.Cron
	client *http.Client
	log    zerolog.Logger
}

func NewActiveChecker(log zerolog.Logger) *ActiveChecker {
	return &ActiveChecker{
		cron: cron.New(cron.WithSeconds()),
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // health probes may hit self-signed upstreams
			},
		},
		log: log,
	}
}

// Schedule registers one repeating job per (service, server) pair found in
// services, reporting outcomes to tracker. It does not start the
// underlying cron scheduler; call Start for that.
func (c *ActiveChecker) Schedule(services map[string]*model.Service, tracker Prober) error {
	for _, svc := range services {
		if svc.HealthCheck == nil || svc.Kind != model.ServiceLoadBalancer {
			continue
		}
		cfg := *svc.HealthCheck
		for _, srv := range svc.Servers {
			srv := srv
			spec := cronSpec(cfg.Interval)
			_, err := c.cron.AddFunc(spec, func() {
				c.probeOnce(srv, cfg, tracker)
			})
			if err != nil {
				return fmt.Errorf("health: schedule %s/%s: %w", svc.Name, srv.ID, err)
			}
		}
	}
	return nil
}

// cronSpec turns a plain interval into a robfig/cron "@every" spec; cron
// has no native duration entry point so this is the idiomatic bridge.
func cronSpec(interval time.Duration) string {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return "@every " + interval.String()
}

func (c *ActiveChecker) probeOnce(srv model.Server, cfg model.HealthCheckConfig, tracker Prober) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout(cfg.Timeout))
	defer cancel()

	ok := false
	switch cfg.Mode {
	case "grpc":
		ok = c.probeTCP(ctx, srv, cfg)
	default:
		ok = c.probeHTTP(ctx, srv, cfg)
	}
	tracker.RecordResult(srv.ID, ok)
}

func trimLeadingSlash(path string) string {
	return strings.TrimPrefix(path, "/")
}

func probeTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Second
	}
	return d
}

func (c *ActiveChecker) probeHTTP(ctx context.Context, srv model.Server, cfg model.HealthCheckConfig) bool {
	host := srv.URL.Hostname()
	port := cfg.Port
	if port == 0 {
		port = portFromURL(srv.URL)
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	target := fmt.Sprintf("%s://%s/%s", srv.Scheme, net.JoinHostPort(host, fmt.Sprint(port)), trimLeadingSlash(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	client := c.client
	if !cfg.FollowRedirects {
		cloned := *c.client
		cloned.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &cloned
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func (c *ActiveChecker) probeTCP(ctx context.Context, srv model.Server, cfg model.HealthCheckConfig) bool {
	host := srv.URL.Hostname()
	port := cfg.Port
	if port == 0 {
		port = portFromURL(srv.URL)
	}
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func portFromURL(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

// Start begins running scheduled probe jobs. Stop cancels them; both are
// safe to call on a checker with zero jobs scheduled.
func (c *ActiveChecker) Start() { c.cron.Start() }
func (c *ActiveChecker) Stop()  { c.cron.Stop() }
