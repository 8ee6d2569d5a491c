package authkit

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieKind selects a row of the cookie policy.
type CookieKind string

const (
	CookieAccess  CookieKind = "access"
	CookieRefresh CookieKind = "refresh"
	// CookieDefault only ever clears a cookie.
	CookieDefault CookieKind = "default"
)

// CookieOptions are the transport attributes applied to a cookie.
type CookieOptions struct {
	HTTPOnly bool
	SameSite http.SameSite
	Secure   bool
	Path     string
	Domain   string
	// MaxAge is the cookie lifetime; zero or less expires the cookie immediately.
	MaxAge time.Duration
}

// CookiePolicy is a static lookup of cookie attributes per kind.
type CookiePolicy map[CookieKind]CookieOptions

// NewCookiePolicy derives the access, refresh and clearing attributes from the configuration.
func NewCookiePolicy(configuration ServerConfig) CookiePolicy {
	sameSite := configuration.SameSiteMode
	if sameSite == 0 || sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteStrictMode
	}
	// Browsers reject SameSite=None without Secure.
	secure := configuration.SecureCookies || sameSite == http.SameSiteNoneMode
	base := CookieOptions{
		HTTPOnly: true,
		SameSite: sameSite,
		Secure:   secure,
		Path:     "/",
		Domain:   configuration.CookieDomain,
	}
	access := base
	access.MaxAge = configuration.AccessTTL
	refresh := base
	refresh.MaxAge = configuration.RefreshTTL
	return CookiePolicy{
		CookieAccess:  access,
		CookieRefresh: refresh,
		CookieDefault: base,
	}
}

// Write sets the named cookie using the attributes of the given kind.
func (policy CookiePolicy) Write(contextGin *gin.Context, name string, kind CookieKind, value string) {
	options := policy[kind]
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		Secure:   options.Secure,
		HttpOnly: options.HTTPOnly,
		SameSite: options.SameSite,
	}
	if kind == CookieDefault || options.MaxAge <= 0 {
		cookie.Value = ""
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0).UTC()
	} else {
		cookie.MaxAge = int(options.MaxAge / time.Second)
	}
	http.SetCookie(contextGin.Writer, cookie)
}

// Clear expires the named cookie with the default attributes.
func (policy CookiePolicy) Clear(contextGin *gin.Context, name string) {
	policy.Write(contextGin, name, CookieDefault, "")
}

// ClearSession expires both session cookies.
func (policy CookiePolicy) ClearSession(contextGin *gin.Context) {
	policy.Clear(contextGin, AccessCookieName)
	policy.Clear(contextGin, RefreshCookieName)
}

func readCookie(request *http.Request, name string) string {
	cookie, err := request.Cookie(name)
	if err != nil || cookie == nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
