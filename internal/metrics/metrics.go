// Package metrics exposes the gateway's Prometheus metrics (spec.md §6
// "metrics" entry point), replacing the teacher's hand-rolled text-encoded
// Registry with github.com/prometheus/client_golang, the same library
// mercator-hq-jupiter's pkg/limits uses for an equivalent request/latency
// surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the gateway updates on the request path.
type Registry struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	activeConns      *prometheus.GaugeVec
	upstreamErrors   *prometheus.CounterVec
	serverEligible   *prometheus.GaugeVec
	circuitState     *prometheus.GaugeVec
	udpSessions      prometheus.Gauge
	reloadsTotal     *prometheus.CounterVec
	reloadDuration   prometheus.Histogram
}

func NewRegistry() *Registry {
	return &Registry{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficcop_requests_total",
				Help: "Total proxied requests by router, service, method and status.",
			},
			[]string{"router", "service", "method", "status"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trafficcop_request_duration_seconds",
				Help:    "End-to-end request duration observed at the gateway.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"router", "service"},
		),
		activeConns: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trafficcop_active_connections",
				Help: "Currently open connections per entry point.",
			},
			[]string{"entrypoint"},
		),
		upstreamErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficcop_upstream_errors_total",
				Help: "Upstream dial/RoundTrip failures by service and server.",
			},
			[]string{"service", "server"},
		),
		serverEligible: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trafficcop_server_eligible",
				Help: "1 if a server is currently eligible to receive traffic, else 0.",
			},
			[]string{"service", "server"},
		),
		circuitState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trafficcop_circuit_breaker_state",
				Help: "Circuit breaker state per service: 0=closed, 1=open, 2=half-open.",
			},
			[]string{"service"},
		),
		udpSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "trafficcop_udp_sessions",
				Help: "Currently tracked UDP sessions.",
			},
		),
		reloadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficcop_config_reloads_total",
				Help: "Config reload attempts by result.",
			},
			[]string{"result"},
		),
		reloadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trafficcop_config_reload_duration_seconds",
				Help:    "Time to validate, compile and publish a reload.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (r *Registry) ObserveRequest(router, service, method, status string, duration float64) {
	r.requestsTotal.WithLabelValues(router, service, method, status).Inc()
	r.requestDuration.WithLabelValues(router, service).Observe(duration)
}

func (r *Registry) IncActiveConns(entryPoint string) { r.activeConns.WithLabelValues(entryPoint).Inc() }
func (r *Registry) DecActiveConns(entryPoint string) { r.activeConns.WithLabelValues(entryPoint).Dec() }

func (r *Registry) IncUpstreamError(service, server string) {
	r.upstreamErrors.WithLabelValues(service, server).Inc()
}

func (r *Registry) SetServerEligible(service, server string, eligible bool) {
	v := 0.0
	if eligible {
		v = 1.0
	}
	r.serverEligible.WithLabelValues(service, server).Set(v)
}

func (r *Registry) SetCircuitState(service string, state int) {
	r.circuitState.WithLabelValues(service).Set(float64(state))
}

func (r *Registry) SetUDPSessions(n int) { r.udpSessions.Set(float64(n)) }

func (r *Registry) ObserveReload(result string, duration float64) {
	r.reloadsTotal.WithLabelValues(result).Inc()
	r.reloadDuration.Observe(duration)
}

// Handler returns the /metrics HTTP handler spec.md §6's metrics entry point
// serves.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
