package authkit

import (
	"net/http"
	"time"

	"github.com/tyemirov/storekeep/pkg/sessiontoken"
)

const (
	// AccessCookieName carries the short-lived access token.
	AccessCookieName = "access-token"
	// RefreshCookieName carries the session-anchoring refresh token.
	RefreshCookieName = "refresh-token"

	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 30 * 24 * time.Hour
	DefaultRenewalWindow = 5 * 24 * time.Hour
)

// ServerConfig configures token signing, lifetimes and cookie transport.
type ServerConfig struct {
	AccessSigningKey  []byte
	RefreshSigningKey []byte
	Issuer            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	// RenewalWindow is the remaining refresh lifetime under which the gate
	// also reissues the refresh token.
	RenewalWindow time.Duration
	CookieDomain  string
	SameSiteMode  http.SameSite
	SecureCookies bool
}

// NewCodec builds the token codec for this configuration.
func (configuration ServerConfig) NewCodec(clock sessiontoken.Clock) (*sessiontoken.Codec, error) {
	return sessiontoken.New(sessiontoken.Config{
		AccessSigningKey:  configuration.AccessSigningKey,
		RefreshSigningKey: configuration.RefreshSigningKey,
		Issuer:            configuration.Issuer,
		AccessTTL:         configuration.AccessTTL,
		RefreshTTL:        configuration.RefreshTTL,
		Clock:             clock,
	})
}

func (configuration ServerConfig) renewalWindow() time.Duration {
	if configuration.RenewalWindow <= 0 {
		return DefaultRenewalWindow
	}
	return configuration.RenewalWindow
}
