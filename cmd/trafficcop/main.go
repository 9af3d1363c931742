// Command trafficcop runs the reverse proxy / load balancer core: it loads
// a YAML config, compiles it into the executable router/balancer/chain
// structures internal/reload builds, starts one listener per referenced
// entry point, and watches the config file for changes, generalizing the
// teacher's cmd/gateway/main.go signal-handling/shutdown skeleton from one
// fixed listener to the full entryPoints/http/tcp/udp surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ZerosAndOnesLLC/TrafficCop/internal/accesslog"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/admin"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/config"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/forward"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/health"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/logging"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/metrics"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/proxy"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/ratelimit"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/reload"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/state"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/statestore"
	"github.com/ZerosAndOnesLLC/TrafficCop/internal/version"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "c", "./trafficcop.yaml", "path to YAML config")
	flag.StringVar(&configPath, "config", "./trafficcop.yaml", "path to YAML config")
	validateOnly := flag.Bool("validate", false, "parse and validate the config, then exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logging.New(*debug)

	f, warnings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trafficcop: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		log.Warn().Str("file", configPath).Msg(w)
	}

	if *validateOnly {
		if err := config.Validate(f); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println("config OK")
		os.Exit(0)
	}

	log.Info().Str("version", version.Value).Str("config", configPath).Msg("trafficcop starting")

	transports := forward.NewDefaultRegistry()
	rateLimiter := ratelimit.NewLimiter()
	passive := health.NewPassiveTracker(0, 0, 0)
	servers := state.NewServerTable(passive)
	metricsReg := metrics.NewRegistry()

	accessLogWriter := os.Stdout
	if f.AccessLog.FilePath != "" {
		file, err := os.OpenFile(f.AccessLog.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("file", f.AccessLog.FilePath).Msg("trafficcop: access log file, falling back to stdout")
		} else {
			defer file.Close()
			accessLog := accesslog.New(file, accesslog.Config{Enabled: f.AccessLog.Enabled, Sampling: f.AccessLog.Sampling, Fields: f.AccessLog.Fields}, log)
			runWithAccessLog(log, f, configPath, transports, rateLimiter, passive, servers, metricsReg, accessLog)
			return
		}
	}
	accessLog := accesslog.New(accessLogWriter, accesslog.Config{Enabled: f.AccessLog.Enabled, Sampling: f.AccessLog.Sampling, Fields: f.AccessLog.Fields}, log)
	runWithAccessLog(log, f, configPath, transports, rateLimiter, passive, servers, metricsReg, accessLog)
}

func runWithAccessLog(
	log zerolog.Logger,
	f *config.File,
	configPath string,
	transports *forward.Registry,
	rateLimiter *ratelimit.Limiter,
	passive *health.PassiveTracker,
	servers *state.ServerTable,
	metricsReg *metrics.Registry,
	accessLog *accesslog.Logger,
) {
	resolvers, err := buildResolvers(f, log)
	if err != nil {
		log.Error().Err(err).Msg("trafficcop: certificate resolver setup failed")
		os.Exit(1)
	}

	sticky, nodeRegistry := buildStateStores(f)
	defer sticky.Close()

	reloader := reload.NewReloader(transports, rateLimiter, sticky, log)
	terminator := proxy.NewTerminator(servers, transports, metricsReg, log)

	compiled, err := reloader.Compile(f, 1, terminator.Handler)
	if err != nil {
		log.Error().Err(err).Msg("trafficcop: initial config compile failed")
		os.Exit(1)
	}

	rt := newRuntime(deps{servers: servers, metrics: metricsReg, accessLog: accessLog, resolvers: resolvers, log: log})
	if failures := rt.sync(compiled); failures > 0 && len(rt.http)+len(rt.tcp)+len(rt.udp) == 0 {
		log.Error().Msg("trafficcop: every entry point failed to bind")
		os.Exit(2)
	}
	servers.Prune(compiled.LiveServers)

	checker := health.NewActiveChecker(log)
	if err := checker.Schedule(compiled.Snapshot.Services, servers); err != nil {
		log.Error().Err(err).Msg("trafficcop: health check schedule failed")
	}
	checker.Start()
	defer checker.Stop()

	nodeID := f.Cluster.NodeID
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	adminHandler := admin.NewHandler(nodeRegistry, nodeID, f.Cluster.AdvertiseAddress, log)

	internalSrv := newInternalServer(f, adminHandler, metricsReg)
	if internalSrv != nil {
		go func() {
			if err := internalSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("trafficcop: admin/metrics server exited")
			}
		}()
	}

	heartbeatCtx, heartbeatCancel := context.WithCancel(context.Background())
	go adminHandler.RunHeartbeat(heartbeatCtx, f.Cluster.HeartbeatInterval.Duration())

	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	go runRateLimiterPrune(pruneCtx, rateLimiter)

	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	provider := config.NewFileProvider(configPath, log)
	snapshots, providerErrs := provider.Snapshots(reloadCtx)
	go runReloadLoop(reloadCtx, log, reloader, terminator, rt, servers, metricsReg, snapshots, providerErrs)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info().Msg("trafficcop: shutting down")
	reloadCancel()
	heartbeatCancel()
	pruneCancel()
	checker.Stop()

	grace := f.Cluster.DrainTimeout.Duration()
	if grace <= 0 {
		grace = defaultGraceTimeout
	}
	rt.shutdownAll(grace)
	if internalSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		_ = internalSrv.Shutdown(ctx)
		cancel()
	}

	os.Exit(130)
}

// rateLimiterPruneInterval and rateLimiterIdleTimeout bound how long a
// per-client-IP token bucket survives after its last request before
// runRateLimiterPrune reclaims it.
const (
	rateLimiterPruneInterval = time.Minute
	rateLimiterIdleTimeout   = 10 * time.Minute
)

// runRateLimiterPrune periodically drops rate-limit buckets that have gone
// idle, so long-running processes don't accumulate one bucket per
// short-lived client IP forever under KeyBy=clientIP.
func runRateLimiterPrune(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(rateLimiterPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Prune(rateLimiterIdleTimeout)
		}
	}
}

// runReloadLoop drains the config provider's channel until ctx is canceled,
// recompiling and publishing a new revision on every emitted File and
// keeping the previous revision live on any compile failure (spec.md
// §4.10's "old snapshot is retained unchanged" on a bad reload).
func runReloadLoop(
	ctx context.Context,
	log zerolog.Logger,
	reloader *reload.Reloader,
	terminator *proxy.Terminator,
	rt *runtime,
	servers *state.ServerTable,
	metricsReg *metrics.Registry,
	snapshots <-chan *config.File,
	providerErrs <-chan error,
) {
	revision := int64(2)
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-snapshots:
			if !ok {
				return
			}
			start := time.Now()
			compiled, err := reloader.Compile(f, revision, terminator.Handler)
			if err != nil {
				log.Error().Err(err).Msg("trafficcop: reload failed, keeping previous snapshot")
				metricsReg.ObserveReload("error", time.Since(start).Seconds())
				continue
			}
			revision++
			rt.sync(compiled)
			servers.Prune(compiled.LiveServers)
			metricsReg.ObserveReload("success", time.Since(start).Seconds())
			log.Info().Int64("revision", compiled.Snapshot.Revision).Msg("trafficcop: config reloaded")
		case err, ok := <-providerErrs:
			if !ok {
				continue
			}
			log.Error().Err(err).Msg("trafficcop: config provider error")
		}
	}
}

// buildStateStores picks the in-memory or Redis-backed StateStore and
// NodeRegistry implementations per cluster.store, per spec.md §6: cluster
// mode with a configured Redis store gets the distributed pair, everything
// else (including standalone deployments) gets the single-process one.
func buildStateStores(f *config.File) (stickyClosable, statestore.NodeRegistry) {
	if f.Cluster.Enabled && f.Cluster.Store != nil && f.Cluster.Store.Redis != nil && len(f.Cluster.Store.Redis.Endpoints) > 0 {
		r := f.Cluster.Store.Redis
		return statestore.NewRedis(r.Endpoints[0], r.Password, r.DB, r.Timeout.Duration()),
			statestore.NewRedisNodeRegistry(r.Endpoints[0], r.Password, r.DB, f.Cluster.NodeTimeout.Duration())
	}
	return statestore.NewMemory(statestore.DefaultTTL), statestore.NewMemoryNodeRegistry(f.Cluster.NodeTimeout.Duration())
}

// stickyClosable is the subset of reload.Reloader's sticky StateStore this
// file needs to also defer-close.
type stickyClosable interface {
	GetSticky(cookieName, ticket string) (string, bool)
	PutSticky(cookieName, ticket, serverID string)
	Close() error
}
