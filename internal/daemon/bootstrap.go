// SPDX-License-Identifier: MIT

// Package daemon wires the relay engine and its HTTP surface into one
// supervised process: component construction, the serve loop, and an
// ordered graceful shutdown that stops every worker before exit.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/streamfork/relayd/internal/api"
	"github.com/streamfork/relayd/internal/cache"
	"github.com/streamfork/relayd/internal/config"
	"github.com/streamfork/relayd/internal/health"
	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/relay"
	"github.com/streamfork/relayd/internal/relay/dashboard"
	"github.com/streamfork/relayd/internal/relay/input"
	"github.com/streamfork/relayd/internal/relay/probe"
	"github.com/streamfork/relayd/internal/tracing"
)

// cacheJanitorInterval is how often the memory cache sweeps expired
// entries. Status snapshots live for seconds, so one sweep per minute
// keeps the map small without measurable cost.
const cacheJanitorInterval = time.Minute

// ShutdownHook releases one runtime resource during graceful shutdown.
// Hooks run in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Runtime bundles the wired components of one relayd process.
type Runtime struct {
	Config     config.Config
	Holder     *config.Holder
	Controller *relay.Controller
	Detector   *input.Detector
	Prober     *probe.Prober
	Health     *health.Manager
	Handler    http.Handler

	hooks []namedHook
}

// registerHook appends a shutdown hook. Registration order matters:
// hooks run LIFO, so resources built first are released last.
func (rt *Runtime) registerHook(name string, hook ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, hook: hook})
}

// Build constructs the full runtime from a validated configuration.
// Construction performs no relay work: the capability probe, the first
// input poll and the first destination fetch all happen on demand.
func Build(ctx context.Context, cfg config.Config, holder *config.Holder) (*Runtime, error) {
	logger := log.WithComponent("daemon")
	rt := &Runtime{Config: cfg, Holder: holder}

	statusCache, redisCache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}
	if redisCache != nil {
		rt.registerHook("cache.redis", func(context.Context) error {
			return redisCache.Close()
		})
	} else if stopper, ok := statusCache.(interface{ Stop() }); ok {
		rt.registerHook("cache.janitor", func(context.Context) error {
			stopper.Stop()
			return nil
		})
	}

	rt.Detector = input.New(input.Config{
		Kind:     input.Kind(cfg.MediaServer.Kind),
		APIURL:   cfg.MediaServer.APIURL,
		StatURL:  cfg.MediaServer.StatURL,
		Path:     cfg.Input.Path,
		CacheTTL: cfg.Input.StatusCacheTTL,
	}, statusCache, log.Base())

	rt.Prober = probe.New(cfg.FFmpegPath, cfg.ProbeTimeout)

	dash := dashboard.New(cfg.Dashboard.URL, cfg.Dashboard.Token, dashboard.Options{})

	rt.Controller = relay.NewController(relay.Config{
		FFmpegPath:   cfg.FFmpegPath,
		InputRTMPURL: cfg.Input.RTMPURL,
		InputSRTURL:  cfg.Input.SRTURL,
	}, dash, rt.Detector, rt.Prober)

	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "relayd",
		ServiceVersion: cfg.Version,
		Exporter:       cfg.OTel.Exporter,
		Endpoint:       cfg.OTel.Endpoint,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing setup: %w", err)
	}
	rt.registerHook("tracing", tp.Shutdown)
	if cfg.OTel.Enabled {
		logger.Info().
			Str("exporter", cfg.OTel.Exporter).
			Str(log.FieldEndpoint, cfg.OTel.Endpoint).
			Msg("tracing enabled")
	}

	rt.Health = buildHealth(cfg, redisCache)

	server := api.New(api.Options{
		Config:     cfg,
		Controller: rt.Controller,
		Collector:  rt.Controller.Telemetry(),
		Input:      rt.Detector,
		Capability: rt.Prober,
		Health:     rt.Health,
		Tracer:     tp.TracerProvider(),
	})
	rt.Handler = server.Routes()

	// Last registered, first executed: workers must be gone before the
	// tracer flushes and the cache closes.
	rt.registerHook("workers", func(ctx context.Context) error {
		stopped := rt.Controller.StopAll(ctx)
		if stopped > 0 {
			logger.Info().Int("stopped", stopped).Msg("workers stopped for shutdown")
		}
		return nil
	})

	return rt, nil
}

// buildCache selects the status-cache backend. A Redis backend that cannot
// be reached fails construction: the operator asked for shared state, and
// silently degrading to per-instance memory would hide a broken deployment.
func buildCache(cfg config.Config) (cache.Cache, *cache.RedisCache, error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		rc, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.Cache.RedisAddr})
		if err != nil {
			return nil, nil, fmt.Errorf("cache backend: %w", err)
		}
		return rc, rc, nil
	}
	return cache.NewMemoryCache(cacheJanitorInterval), nil, nil
}

// buildHealth assembles the readiness checkers for the dependencies a
// relay start needs: the worker binary, the media-server status interface,
// the dashboard, and Redis when configured.
func buildHealth(cfg config.Config, redisCache *cache.RedisCache) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpegPath))
	hm.RegisterChecker(health.NewEndpointChecker("dashboard", cfg.Dashboard.URL))

	statusURL := cfg.MediaServer.APIURL
	if cfg.MediaServer.Kind == config.MediaServerNginxRTMP {
		statusURL = cfg.MediaServer.StatURL
	}
	hm.RegisterChecker(health.NewEndpointChecker("media_server", statusURL))

	if redisCache != nil {
		hm.RegisterChecker(health.NewPingChecker("redis", redisCache.HealthCheck))
	}
	return hm
}
