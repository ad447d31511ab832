// SPDX-License-Identifier: MIT

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://relayd.local/api/v1/relay/status", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")

	if got := ExtractToken(r); got != "bearer-token" {
		t.Fatalf("ExtractToken() = %q, want %q", got, "bearer-token")
	}
}

func TestExtractToken_RejectsOtherSchemes(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://relayd.local/api/v1/relay/status", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	if got := ExtractToken(r); got != "" {
		t.Fatalf("ExtractToken() = %q, want empty", got)
	}
}

func TestExtractToken_IgnoresQueryAndCookies(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://relayd.local/api/v1/relay/status?token=query-token", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie-token"})

	if got := ExtractToken(r); got != "" {
		t.Fatalf("ExtractToken() = %q, want empty", got)
	}
}

func TestAuthorizeToken(t *testing.T) {
	if AuthorizeToken("secret", "secret") != true {
		t.Fatal("AuthorizeToken should accept exact match")
	}
	if AuthorizeToken("secret", "other") != false {
		t.Fatal("AuthorizeToken should reject mismatch")
	}
	if AuthorizeToken("", "secret") != false {
		t.Fatal("AuthorizeToken should reject empty got token")
	}
	if AuthorizeToken("secret", "") != false {
		t.Fatal("AuthorizeToken should reject empty expected token")
	}
	if AuthorizeToken("secret", "   ") != false {
		t.Fatal("AuthorizeToken should reject whitespace-only expected token")
	}
}

func TestAuthorizeRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://relayd.local/api/v1/relay/status", nil)
	r.Header.Set("Authorization", "Bearer secret")

	if AuthorizeRequest(r, "secret") != true {
		t.Fatal("AuthorizeRequest should accept matching bearer token")
	}
	if AuthorizeRequest(r, "other") != false {
		t.Fatal("AuthorizeRequest should reject mismatched token")
	}
	if AuthorizeRequest(nil, "secret") != false {
		t.Fatal("AuthorizeRequest should reject nil request")
	}
}
