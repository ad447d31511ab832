// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamfork/relayd/internal/relay"
)

func (s *Server) handleStartAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.controller.StartAll(r.Context())
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type stopResponse struct {
	Stopped int `json:"stopped"`
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stopResponse{Stopped: s.controller.StopAll(r.Context())})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.controller.RefreshAll(r.Context())
	if err != nil {
		writeRelayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status(r.Context()))
}

func (s *Server) handleStartOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.controller.StartOne(r.Context(), id); err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStopOne(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.StopOne(chi.URLParam(r, "id")); err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRestartOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.controller.RestartOne(r.Context(), id); err != nil {
		writeRelayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInput reports input availability directly from the detector. The
// detector caches poll results, so dashboards may poll this endpoint
// freely without hammering the media server.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.input.Detect(r.Context()))
}

// handleCapability reports the memoized probe outcome. It never triggers
// a probe: before the first relay start both fields read false.
func (s *Server) handleCapability(w http.ResponseWriter, _ *http.Request) {
	available, probed := s.capability.Cached()
	writeJSON(w, http.StatusOK, relay.HardwareStatus{Available: available, Probed: probed})
}
