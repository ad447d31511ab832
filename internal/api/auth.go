// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strings"

	"github.com/streamfork/relayd/internal/auth"
	"github.com/streamfork/relayd/internal/log"
)

// requireAuth guards the /api/v1 tree with bearer-token auth. A server
// whose token is empty fails closed with 503: config validation normally
// rejects that state, so hitting it means the deployment is broken, and
// answering 401 would misdirect the operator toward client credentials.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "api")

		if strings.TrimSpace(s.token) == "" {
			logger.Error().
				Str(log.FieldEvent, "auth.fail_closed").
				Str("path", r.URL.Path).
				Msg("request rejected: no API token configured")
			writeError(w, http.StatusServiceUnavailable, codeAuthUnconfigured,
				"API authentication is not configured")
			return
		}

		got := auth.ExtractToken(r)
		if got == "" {
			logger.Warn().
				Str(log.FieldEvent, "auth.missing_token").
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request without bearer token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="relayd"`)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		if !auth.AuthorizeToken(got, s.token) {
			logger.Warn().
				Str(log.FieldEvent, "auth.invalid_token").
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Msg("request with invalid bearer token")
			w.Header().Set("WWW-Authenticate", `Bearer realm="relayd"`)
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
