// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"

	"github.com/streamfork/relayd/internal/health"
	"github.com/streamfork/relayd/internal/relay"
	"github.com/streamfork/relayd/internal/relay/model"
)

// contractBaseURL matches the server entry in openapi.yaml so the legacy
// router can resolve request URLs against the document.
const contractBaseURL = "http://localhost:8090"

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile("openapi.yaml")
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

func forEachOperation(t *testing.T, doc *openapi3.T, fn func(method, path string, op *openapi3.Operation)) {
	t.Helper()
	for path, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}
		for method, op := range pathItem.Operations() {
			if op == nil {
				continue
			}
			fn(method, path, op)
		}
	}
}

// contractFixture wires a server whose stubbed collaborators succeed for
// every documented operation, so a 404/405 can only mean a missing route.
func contractFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := newFixture(t, func(o *Options) {
		o.Health = health.NewManager("test-1.2.3")
	})
	f.controller.report = relay.Report{
		Started: []string{"yt"},
		Input:   model.InputState{Available: true, Protocol: model.ProtocolRTMP},
	}
	f.controller.status = relay.Status{
		Input:        model.InputState{Available: false, Protocol: model.ProtocolNone},
		Destinations: []relay.DestinationStatus{},
	}
	f.collector.Register("yt", time.Now())
	f.collector.Ingest("yt", "frame=  100 fps= 30 q=23.0 size= 512KiB time=00:00:03.33 bitrate=1200.0kbits/s speed=1.00x")
	return f
}

func contractRequest(method, path string, authed bool) *http.Request {
	urlPath := strings.ReplaceAll(path, "{id}", "yt")
	req := httptest.NewRequest(method, contractBaseURL+urlPath, nil)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	return req
}

// Every documented operation must be mounted on the production router.
func TestOpenAPIRouteCoverage(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	f := contractFixture(t)

	forEachOperation(t, doc, func(method, path string, op *openapi3.Operation) {
		// The delete operations clear the seeded series; re-register so
		// iteration order cannot turn a handler 404 into a false negative.
		f.collector.Register("yt", time.Now())

		req := contractRequest(method, path, true)
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)

		if rr.Code == http.StatusNotFound || rr.Code == http.StatusMethodNotAllowed {
			t.Errorf("route not mounted: %s %s -> %d", method, path, rr.Code)
		}
	})
}

func validateAgainstDoc(t *testing.T, doc *openapi3.T, req *http.Request, rr *httptest.ResponseRecorder) {
	t.Helper()
	router, err := legacy.NewRouter(doc)
	require.NoError(t, err, "openapi router init")

	route, pathParams, err := router.FindRoute(req)
	require.NoError(t, err, "openapi route lookup for %s %s", req.Method, req.URL.Path)

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		},
		Status: rr.Code,
		Header: rr.Header(),
	}
	input.SetBodyBytes(rr.Body.Bytes())

	require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input),
		"response for %s %s does not match the document", req.Method, req.URL.Path)
}

// Responses of the JSON operations must match their documented schemas.
func TestOpenAPIResponseSchemas(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	f := contractFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		authed bool
	}{
		{"health", http.MethodGet, "/healthz", false},
		{"ready", http.MethodGet, "/readyz", false},
		{"version", http.MethodGet, "/api/v1/version", true},
		{"start report", http.MethodPost, "/api/v1/relay/start", true},
		{"stop count", http.MethodPost, "/api/v1/relay/stop", true},
		{"status", http.MethodGet, "/api/v1/relay/status", true},
		{"input", http.MethodGet, "/api/v1/relay/input", true},
		{"capability", http.MethodGet, "/api/v1/relay/capability", true},
		{"telemetry summaries", http.MethodGet, "/api/v1/relay/telemetry", true},
		{"telemetry series", http.MethodGet, "/api/v1/relay/telemetry/{id}", true},
		{"unauthorized envelope", http.MethodGet, "/api/v1/relay/status", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := contractRequest(tc.method, tc.path, tc.authed)
			rr := httptest.NewRecorder()
			f.handler.ServeHTTP(rr, req)
			validateAgainstDoc(t, doc, req, rr)
		})
	}
}

// The error envelope uses the documented code vocabulary everywhere.
func TestOpenAPIErrorCodesDeclared(t *testing.T) {
	doc := loadOpenAPIDoc(t)

	schema := doc.Components.Schemas["ErrorEnvelope"]
	require.NotNil(t, schema, "ErrorEnvelope schema missing")

	errProp := schema.Value.Properties["error"]
	require.NotNil(t, errProp)
	codeProp := errProp.Value.Properties["code"]
	require.NotNil(t, codeProp)

	declared := make(map[string]bool)
	for _, v := range codeProp.Value.Enum {
		if s, ok := v.(string); ok {
			declared[s] = true
		}
	}

	for _, code := range []string{
		codeUnauthorized, codeAuthUnconfigured, codeNotFound,
		codeConflict, codeBadGateway, codeInvalidArgument, codeInternal,
	} {
		require.True(t, declared[code], "error code %q missing from document enum", code)
	}
}
