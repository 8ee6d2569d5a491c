package web

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errWildcardOrigin      = errors.New("web.cors.wildcard_origin")
	errEmptyAllowedOrigins = errors.New("web.cors.no_origins")
	errInvalidOrigin       = errors.New("web.cors.invalid_origin")
)

const corsPreflightMaxAge = 12 * time.Hour

// ConfigureCORS lets the listed storefront origins call the API with the
// session cookies attached.
func ConfigureCORS(logger *zap.Logger, allowedOrigins []string) (gin.HandlerFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins, err := sanitizeOrigins(logger, allowedOrigins)
	if err != nil {
		return nil, err
	}
	logger.Info("cors enabled", zap.Strings("origins", origins))
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           corsPreflightMaxAge,
	}), nil
}

// sanitizeOrigins normalizes each origin to scheme://host, drops blanks and
// duplicates and returns them sorted. Credentialed CORS forbids "*".
func sanitizeOrigins(logger *zap.Logger, allowedOrigins []string) ([]string, error) {
	unique := make(map[string]struct{}, len(allowedOrigins))
	for _, rawOrigin := range allowedOrigins {
		rawOrigin = strings.TrimSpace(rawOrigin)
		if rawOrigin == "" {
			continue
		}
		origin, plaintext, normalizeErr := normalizeOrigin(rawOrigin)
		if normalizeErr != nil {
			return nil, normalizeErr
		}
		if plaintext {
			logger.Warn("plaintext cors origin outside loopback",
				zap.String("code", "web.cors.plaintext_origin"),
				zap.String("origin", origin))
		}
		unique[origin] = struct{}{}
	}
	if len(unique) == 0 {
		return nil, errEmptyAllowedOrigins
	}

	origins := make([]string, 0, len(unique))
	for origin := range unique {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins, nil
}

// normalizeOrigin reports plaintext=true for http origins that are not
// loopback hosts.
func normalizeOrigin(rawOrigin string) (origin string, plaintext bool, err error) {
	if rawOrigin == "*" {
		return "", false, errWildcardOrigin
	}
	parsed, parseErr := url.Parse(rawOrigin)
	if parseErr != nil || parsed.Host == "" {
		return "", false, fmt.Errorf("%w: %q", errInvalidOrigin, rawOrigin)
	}
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" || parsed.Fragment != "" || parsed.User != nil {
		return "", false, fmt.Errorf("%w: %q must be scheme://host[:port]", errInvalidOrigin, rawOrigin)
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "https":
	case "http":
		plaintext = !isLoopbackHost(parsed.Hostname())
	default:
		return "", false, fmt.Errorf("%w: %q must use http or https", errInvalidOrigin, rawOrigin)
	}
	return scheme + "://" + strings.ToLower(parsed.Host), plaintext, nil
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
