// SPDX-License-Identifier: MIT

// Package api exposes the relay control surface over HTTP: relay-wide and
// per-destination lifecycle operations, status, input and capability
// queries, and telemetry access. All JSON errors share the envelope
// {"error":{"code","message"}}.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamfork/relayd/internal/api/middleware"
	"github.com/streamfork/relayd/internal/config"
	"github.com/streamfork/relayd/internal/health"
	"github.com/streamfork/relayd/internal/relay"
	"github.com/streamfork/relayd/internal/relay/model"
	"github.com/streamfork/relayd/internal/relay/telemetry"
)

// Controller is the relay operation surface the server drives. Satisfied
// by *relay.Controller.
type Controller interface {
	StartAll(ctx context.Context) (relay.Report, error)
	StopAll(ctx context.Context) int
	StartOne(ctx context.Context, id string) error
	StopOne(id string) error
	RestartOne(ctx context.Context, id string) error
	RefreshAll(ctx context.Context) (relay.Report, error)
	Status(ctx context.Context) relay.Status
}

// InputSource answers input availability queries. Satisfied by
// *input.Detector.
type InputSource interface {
	Detect(ctx context.Context) model.InputState
}

// CapabilitySource reports the memoized encoder probe state without
// triggering a probe. Satisfied by *probe.Prober.
type CapabilitySource interface {
	Cached() (available, probed bool)
}

// Options carries the server's collaborators.
type Options struct {
	Config     config.Config
	Controller Controller
	Collector  *telemetry.Collector
	Input      InputSource
	Capability CapabilitySource
	Health     *health.Manager

	// Tracer enables HTTP span creation when non-nil.
	Tracer trace.TracerProvider
}

// Server wires handlers, middleware and auth into one http.Handler.
type Server struct {
	token      string
	version    string
	rateLimit  int
	tracer     trace.TracerProvider
	controller Controller
	collector  *telemetry.Collector
	input      InputSource
	capability CapabilitySource
	health     *health.Manager
}

// New builds a Server from validated configuration.
func New(opts Options) *Server {
	return &Server{
		token:      opts.Config.APIToken,
		version:    opts.Config.Version,
		rateLimit:  opts.Config.RateLimitRPS,
		tracer:     opts.Tracer,
		controller: opts.Controller,
		collector:  opts.Collector,
		input:      opts.Input,
		capability: opts.Capability,
		health:     opts.Health,
	}
}

// Routes assembles the full router. Health probes and the Prometheus
// scrape endpoint stay outside the auth gate; everything under /api/v1
// requires the bearer token. CORS is wide open because authentication is
// token-based and cookie-free.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
		EnableLogging:  true,
		RateLimitRPS:   s.rateLimit,
		TracerProvider: s.tracer,
		ServiceName:    "relayd",
	})

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/version", s.handleVersion)

		r.Route("/relay", func(r chi.Router) {
			r.Post("/start", s.handleStartAll)
			r.Post("/stop", s.handleStopAll)
			r.Post("/refresh", s.handleRefresh)
			r.Get("/status", s.handleStatus)
			r.Get("/input", s.handleInput)
			r.Get("/capability", s.handleCapability)

			r.Route("/destinations/{id}", func(r chi.Router) {
				r.Post("/start", s.handleStartOne)
				r.Post("/stop", s.handleStopOne)
				r.Post("/restart", s.handleRestartOne)
			})

			r.Route("/telemetry", func(r chi.Router) {
				r.Get("/", s.handleTelemetrySummaries)
				r.Delete("/", s.handleTelemetryClearAll)
				r.Get("/{id}", s.handleTelemetrySeries)
				r.Delete("/{id}", s.handleTelemetryClear)
			})
		})
	})

	return r
}

// Handler returns Routes; kept for symmetry with http.Server wiring.
func (s *Server) Handler() http.Handler { return s.Routes() }

type versionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{Service: "relayd", Version: s.version})
}
