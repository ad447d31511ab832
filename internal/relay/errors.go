// SPDX-License-Identifier: MIT

package relay

import "errors"

// Sentinel errors for errors.Is checks at the API boundary. Worker-level
// outcomes (already running, not running) surface as the sentinels of the
// worker package.
var (
	// ErrDashboardUnavailable marks a failed destination-list fetch.
	ErrDashboardUnavailable = errors.New("relay: destination source unavailable")
	// ErrNoEnabledDestinations is returned by StartAll when the fetched
	// list contains no enabled destination.
	ErrNoEnabledDestinations = errors.New("relay: no enabled destinations")
	// ErrUnknownDestination is returned when an identifier is absent from
	// the fetched destination list.
	ErrUnknownDestination = errors.New("relay: unknown destination")
)
