// SPDX-License-Identifier: MIT

// Package model holds the relay domain types exchanged with the dashboard
// and shared across the engine components.
package model

// Destination is one outbound relay target. Records are supplied by the
// dashboard and are read-only to the engine.
type Destination struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Enabled   bool            `json:"enabled"`
	Endpoint  string          `json:"endpoint"`
	StreamKey string          `json:"streamKey"`
	Encoding  *EncodingConfig `json:"encoding,omitempty"`
	SRT       *SRTParams      `json:"srt,omitempty"`
}

// SRTParams carries optional pull/connect-style delivery parameters.
// When nil, the plan builder applies protocol defaults (200 ms latency,
// caller mode).
type SRTParams struct {
	LatencyMS  int    `json:"latencyMs,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Mode       string `json:"mode,omitempty"`
}
