// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps handlers in server spans. Probe endpoints are filtered out
// so liveness checks do not flood the trace backend.
func OTelHTTP(tp trace.TracerProvider, serviceName string) func(http.Handler) http.Handler {
	if serviceName == "" {
		serviceName = "relayd"
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanName),
		)
	}
}

func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// spanName keeps query values out of span names; a trailing "?" marks that
// a query string was present.
func spanName(_ string, r *http.Request) string {
	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?"
	}
	return r.Method + " " + path
}
