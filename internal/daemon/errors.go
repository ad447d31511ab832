// SPDX-License-Identifier: MIT

package daemon

import "errors"

var (
	// ErrNilRuntime is returned when an App is run without a built runtime.
	ErrNilRuntime = errors.New("daemon: runtime is nil")
	// ErrMissingHandler is returned when the runtime carries no HTTP handler.
	ErrMissingHandler = errors.New("daemon: HTTP handler is required")
)
