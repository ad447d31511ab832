// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/streamfork/relayd/internal/log"
)

// HeaderRequestID is the header used to propagate request IDs across
// services. Incoming values are trusted as-is; absent ones are minted here.
const HeaderRequestID = "X-Request-ID"

// RequestID ensures every request carries an ID, stores it in the request
// context for log correlation, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := log.ContextWithRequestID(r.Context(), id)
		w.Header().Set(HeaderRequestID, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
