// SPDX-License-Identifier: MIT

// Package plan maps a destination's configuration and the probed encoder
// capability to a concrete worker invocation. Building a plan performs no
// I/O and never spawns a process.
package plan

// Plan is the fully determined invocation for one relay worker. Once a
// worker runs with a plan, the plan does not change until a restart.
type Plan struct {
	DestinationID string
	Output        string
	Args          []string
	Passthrough   bool
	Hardware      bool
}
