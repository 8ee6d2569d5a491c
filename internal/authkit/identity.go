package authkit

import (
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
)

const identityContextKey = "authkit.identity"

// Identity is the request-scoped authentication result: either
// Unauthenticated or Authenticated.
type Identity interface {
	isIdentity()
}

// Unauthenticated is the identity of a request the gate has not admitted.
type Unauthenticated struct{}

// Authenticated carries the user record loaded by the gate.
type Authenticated struct {
	User *accounts.User
}

func (Unauthenticated) isIdentity() {}
func (Authenticated) isIdentity()   {}

// CurrentIdentity returns the identity attached by the gate, or Unauthenticated.
func CurrentIdentity(contextGin *gin.Context) Identity {
	value, exists := contextGin.Get(identityContextKey)
	if !exists {
		return Unauthenticated{}
	}
	identity, ok := value.(Identity)
	if !ok {
		return Unauthenticated{}
	}
	return identity
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(contextGin *gin.Context) (*accounts.User, bool) {
	switch identity := CurrentIdentity(contextGin).(type) {
	case Authenticated:
		if identity.User == nil {
			return nil, false
		}
		return identity.User, true
	default:
		return nil, false
	}
}

func attachIdentity(contextGin *gin.Context, identity Identity) {
	contextGin.Set(identityContextKey, identity)
}
