// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/streamfork/relayd/internal/log"
)

// Recoverer converts handler panics into 500 responses so a single bad
// request cannot take down the daemon. The stack trace goes to the log,
// never to the client.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 8192)
				n := runtime.Stack(buf, false)

				logger := log.WithComponentFromContext(r.Context(), "http")
				logger.Error().
					Str(log.FieldEvent, "panic.recovered").
					Interface("panic", rec).
					Str("method", r.Method).
					Str("path", sanitizePath(r.URL.Path)).
					Str("stack", string(buf[:n])).
					Msg("recovered from panic in handler")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"internal server error"}}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// sanitizePath strips control characters and invalid UTF-8 before the path
// reaches the log, guarding against log injection via crafted URLs.
func sanitizePath(p string) string {
	if !utf8.ValidString(p) {
		p = strings.ToValidUTF8(p, "�")
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, p)
}
