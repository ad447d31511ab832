// SPDX-License-Identifier: MIT

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streamfork/relayd/internal/relay/telemetry"
)

func (s *Server) handleTelemetrySummaries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Summaries())
}

type seriesResponse struct {
	DestinationID string             `json:"destinationId"`
	Samples       []telemetry.Sample `json:"samples"`
}

func (s *Server) handleTelemetrySeries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.collector.Known(id) {
		writeError(w, http.StatusNotFound, codeNotFound, "no telemetry for destination")
		return
	}

	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
		return
	}

	samples := s.collector.Series(id, since, limit)
	if samples == nil {
		samples = []telemetry.Sample{}
	}
	writeJSON(w, http.StatusOK, seriesResponse{DestinationID: id, Samples: samples})
}

// handleTelemetryClear drops one series. Deletion is idempotent: clearing
// an unknown destination is a no-op, not an error.
func (s *Server) handleTelemetryClear(w http.ResponseWriter, r *http.Request) {
	s.collector.Clear(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTelemetryClearAll(w http.ResponseWriter, _ *http.Request) {
	s.collector.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

// parseSince accepts RFC 3339 timestamps or unix seconds. Empty means "from
// the beginning of the retained window".
func parseSince(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid since value %q: want RFC 3339 or unix seconds", raw)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit value %q: want a non-negative integer", raw)
	}
	return limit, nil
}
