// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/streamfork/relayd/internal/log"
)

// RequestLogger emits one line per completed request. Probe and scrape
// endpoints log at debug so steady-state output stays readable.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger := log.WithComponentFromContext(r.Context(), "http")

		var evt *zerolog.Event
		switch r.URL.Path {
		case "/healthz", "/readyz", "/metrics":
			evt = logger.Debug()
		default:
			evt = logger.Info()
		}

		evt.
			Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str("path", sanitizePath(r.URL.Path)).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}
