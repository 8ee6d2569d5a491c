package authkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNewCookiePolicy(t *testing.T) {
	configuration := newTestServerConfig()
	configuration.SameSiteMode = http.SameSiteDefaultMode
	configuration.CookieDomain = "example.com"
	policy := NewCookiePolicy(configuration)

	if policy[CookieAccess].MaxAge != 15*time.Minute || policy[CookieRefresh].MaxAge != 30*24*time.Hour {
		t.Fatalf("unexpected lifetimes %+v", policy)
	}
	for kind, options := range policy {
		if !options.HTTPOnly || options.SameSite != http.SameSiteStrictMode || options.Path != "/" || options.Domain != "example.com" {
			t.Fatalf("unexpected options for %s: %+v", kind, options)
		}
		if options.Secure {
			t.Fatalf("cookies must not be secure outside production")
		}
	}
	if policy[CookieDefault].MaxAge != 0 {
		t.Fatalf("default policy must expire immediately")
	}
}

func TestCookiePolicySameSiteNoneForcesSecure(t *testing.T) {
	configuration := newTestServerConfig()
	configuration.SameSiteMode = http.SameSiteNoneMode
	policy := NewCookiePolicy(configuration)
	if !policy[CookieAccess].Secure {
		t.Fatalf("SameSite=None requires Secure")
	}
}

func TestCookiePolicyClearWritesMaxAgeZero(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	contextGin, _ := gin.CreateTestContext(recorder)
	policy := NewCookiePolicy(newTestServerConfig())

	policy.ClearSession(contextGin)

	headers := recorder.Header().Values("Set-Cookie")
	if len(headers) != 2 {
		t.Fatalf("expected two Set-Cookie headers, got %v", headers)
	}
	for _, header := range headers {
		if !strings.Contains(header, "Max-Age=0") || !strings.Contains(header, "HttpOnly") {
			t.Fatalf("unexpected clearing header %q", header)
		}
	}
	if !strings.HasPrefix(headers[0], AccessCookieName+"=;") || !strings.HasPrefix(headers[1], RefreshCookieName+"=;") {
		t.Fatalf("expected empty values, got %v", headers)
	}
}
