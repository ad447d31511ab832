// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldDestination   = "destination"

	// Process / relay fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldEncoder   = "encoder"
	FieldProtocol  = "protocol"

	// Path / URL fields
	FieldEndpoint = "endpoint"
	FieldBaseURL  = "base_url"
)
