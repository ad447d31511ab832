// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/streamfork/relayd/internal/log"
)

// RateLimitConfig sizes the per-IP request budget.
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per window.
	RequestLimit int

	// WindowSize defaults to one second.
	WindowSize time.Duration
}

// RateLimit enforces a per-client-IP budget using a sliding window.
// Rejected requests get a JSON error body and a Retry-After hint.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Second
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger := log.WithComponentFromContext(r.Context(), "http")
			logger.Warn().
				Str(log.FieldEvent, "ratelimit.rejected").
				Str("method", r.Method).
				Str("path", sanitizePath(r.URL.Path)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request rate limited")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"}}`))
		}),
	)
}
