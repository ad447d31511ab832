// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/relay"
	"github.com/streamfork/relayd/internal/relay/worker"
)

// Error codes shared across handlers. Clients branch on the code, never
// on the message text.
const (
	codeUnauthorized     = "unauthorized"
	codeAuthUnconfigured = "auth_unconfigured"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeBadGateway       = "upstream_unavailable"
	codeInvalidArgument  = "invalid_argument"
	codeInternal         = "internal"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.encode_failed").
			Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeRelayError maps controller and supervisor sentinels onto HTTP
// statuses. Anything unmapped is an internal error; the detail stays in
// the log, not the response.
func writeRelayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, relay.ErrUnknownDestination):
		writeError(w, http.StatusNotFound, codeNotFound, "unknown destination")
	case errors.Is(err, worker.ErrNotRunning):
		writeError(w, http.StatusNotFound, codeNotFound, "destination is not running")
	case errors.Is(err, worker.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, codeConflict, "destination is already running")
	case errors.Is(err, relay.ErrNoEnabledDestinations):
		writeError(w, http.StatusConflict, codeConflict, "no enabled destinations")
	case errors.Is(err, relay.ErrDashboardUnavailable):
		writeError(w, http.StatusBadGateway, codeBadGateway, "destination source unavailable")
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.relay_error").
			Str("path", r.URL.Path).
			Msg("relay operation failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
