// SPDX-License-Identifier: MIT

// Package net validates and normalizes the network endpoints the relay
// pushes to. Destination records arrive from an external dashboard and are
// never trusted as-is.
package net

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// OutputSchemes lists the URL schemes a destination endpoint may use.
// rtmp/rtmps address push-style targets, srt addresses pull/connect-style
// targets.
var OutputSchemes = map[string]bool{
	"rtmp":  true,
	"rtmps": true,
	"srt":   true,
}

// NormalizeHost validates and normalizes a host for comparison and logging.
// IDN hosts are converted to their ASCII (punycode) form.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	}
	if strings.Contains(host, "/") {
		return "", fmt.Errorf("host must not include path: %s", raw)
	}
	if strings.Contains(host, "@") {
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// ValidateEndpoint checks that a destination endpoint is a well-formed
// output URL with an allowed scheme and a resolvable host component.
// It returns the parsed URL for further target construction.
func ValidateEndpoint(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !OutputSchemes[scheme] {
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("endpoint %q has no host", raw)
	}
	if _, err := NormalizeHost(u.Hostname()); err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", raw, err)
	}
	return u, nil
}
