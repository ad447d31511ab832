// SPDX-License-Identifier: MIT

package relay

import (
	"time"

	"github.com/streamfork/relayd/internal/relay/model"
	"github.com/streamfork/relayd/internal/relay/telemetry"
)

// Report summarizes a relay-wide start.
type Report struct {
	Started  []string          `json:"started"`
	Failed   map[string]string `json:"failed,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
	Hardware bool              `json:"hardware"`
	Input    model.InputState  `json:"input"`
}

func (r *Report) fail(id string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[id] = err.Error()
}

// Status is the aggregate relay state.
type Status struct {
	Active       bool                `json:"active"`
	StartedAt    *time.Time          `json:"startedAt,omitempty"`
	Input        model.InputState    `json:"input"`
	Hardware     HardwareStatus      `json:"hardware"`
	Destinations []DestinationStatus `json:"destinations"`
}

// HardwareStatus reports the memoized capability probe outcome. Probed is
// false until the first relay start has run the probe.
type HardwareStatus struct {
	Available bool `json:"available"`
	Probed    bool `json:"probed"`
}

// DestinationStatus is the per-destination slice of Status. Entries cover
// every destination the controller knows about: the last fetched list,
// running workers, and destinations with an (ended) telemetry series.
type DestinationStatus struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	Enabled     bool               `json:"enabled"`
	Known       bool               `json:"known"`
	Running     bool               `json:"running"`
	PID         int                `json:"pid,omitempty"`
	StartedAt   *time.Time         `json:"startedAt,omitempty"`
	Passthrough bool               `json:"passthrough,omitempty"`
	Hardware    bool               `json:"hardware,omitempty"`
	Telemetry   *telemetry.Summary `json:"telemetry,omitempty"`
}
