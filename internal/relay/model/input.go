// SPDX-License-Identifier: MIT

package model

import "time"

// Protocol identifies the wire protocol that delivered the live input.
type Protocol string

const (
	ProtocolRTMP Protocol = "rtmp"
	ProtocolSRT  Protocol = "srt"
	// ProtocolNone marks an input whose source connection type is not one
	// of the supported protocols. The input may still be available.
	ProtocolNone Protocol = "none"
)

// InputState is the derived availability of the live input. Since tracks
// the start of the current availability run: it is set on the
// unavailable-to-available transition and cleared the moment a check
// reports unavailable.
type InputState struct {
	Available bool       `json:"available"`
	Protocol  Protocol   `json:"protocol"`
	Since     *time.Time `json:"since,omitempty"`
}
