// SPDX-License-Identifier: MIT

package worker

import (
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/streamfork/relayd/internal/relay/plan"
)

// Handle is one running FFmpeg worker.
type Handle struct {
	DestinationID string
	PID           int
	StartedAt     time.Time
	Plan          plan.Plan

	cmd        *exec.Cmd
	generation uint64
	stopped    atomic.Bool
	done       chan struct{}
}

// Done returns a channel that is closed once the worker has exited and all
// bookkeeping for it has completed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Info returns the externally visible view of the handle. The plan's output
// URL is deliberately omitted: push targets embed the stream key.
func (h *Handle) Info() HandleInfo {
	return HandleInfo{
		DestinationID: h.DestinationID,
		PID:           h.PID,
		StartedAt:     h.StartedAt,
		Passthrough:   h.Plan.Passthrough,
		Hardware:      h.Plan.Hardware,
	}
}

// HandleInfo describes a running worker without exposing process internals.
type HandleInfo struct {
	DestinationID string    `json:"destinationId"`
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"startedAt"`
	Passthrough   bool      `json:"passthrough"`
	Hardware      bool      `json:"hardware"`
}
