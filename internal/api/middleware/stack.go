// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// StackConfig selects which middleware layers a router receives. The zero
// value yields a router with only panic recovery and request IDs, which is
// what most handler tests want.
type StackConfig struct {
	// AllowedOrigins enables CORS handling when non-empty. "*" allows any
	// origin.
	AllowedOrigins []string

	// EnableMetrics records per-request Prometheus metrics.
	EnableMetrics bool

	// EnableLogging emits one structured log line per completed request.
	EnableLogging bool

	// RateLimitRPS caps requests per client IP per second. Zero disables
	// rate limiting.
	RateLimitRPS int

	// TracerProvider enables OTel HTTP spans when non-nil.
	TracerProvider trace.TracerProvider

	// ServiceName names the otelhttp operation. Ignored unless
	// TracerProvider is set.
	ServiceName string
}

// NewRouter builds a chi router with the standard middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack attaches the middleware chain in a fixed order. Recovery runs
// outermost so a panic anywhere below still produces a well-formed response,
// and rate limiting runs innermost so rejected requests are still logged
// and counted.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics)
	}
	if cfg.TracerProvider != nil {
		r.Use(OTelHTTP(cfg.TracerProvider, cfg.ServiceName))
	}
	if cfg.EnableLogging {
		r.Use(RequestLogger)
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(RateLimit(RateLimitConfig{RequestLimit: cfg.RateLimitRPS}))
	}
}
