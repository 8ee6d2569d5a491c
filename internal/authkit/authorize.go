package authkit

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/apierror"
)

const ownedResourceContextKey = "authkit.owned_resource"

// ErrResourceNotFound must be wrapped by an OwnerLookup when the resource does not exist.
var ErrResourceNotFound = errors.New("authkit.resource.not_found")

// OwnedResource exposes the userId of the owning user.
type OwnedResource interface {
	OwnerUserID() string
}

// OwnerLookup loads a resource by its identifier.
type OwnerLookup func(ctx context.Context, resourceID string) (OwnedResource, error)

// OwnershipRule describes an owner-only resource.
type OwnershipRule struct {
	// Param is the path parameter holding the resource identifier.
	Param  string
	Lookup OwnerLookup
	// Resource names the resource in error messages, e.g. "store".
	Resource string
}

// RequireAdmin admits only authenticated admins.
func RequireAdmin() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, ok := CurrentUser(contextGin)
		if !ok {
			apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
			return
		}
		if !user.IsAdmin() {
			apierror.Abort(contextGin, apierror.Forbidden("This action requires admin privileges"))
			return
		}
		contextGin.Next()
	}
}

// RequireOwner admits admins and the owner of the resource named by the
// path parameter. A missing resource is NotFound; a resource owned by
// someone else is Forbidden. The loaded resource is attached for the handler.
func RequireOwner(rule OwnershipRule) gin.HandlerFunc {
	resource := strings.TrimSpace(rule.Resource)
	if resource == "" {
		resource = "resource"
	}
	notFoundMessage := strings.ToUpper(resource[:1]) + resource[1:] + " not found"
	forbiddenMessage := "You are not the owner of this " + resource

	return func(contextGin *gin.Context) {
		user, ok := CurrentUser(contextGin)
		if !ok {
			apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
			return
		}
		resourceID := strings.TrimSpace(contextGin.Param(rule.Param))
		if resourceID == "" {
			apierror.Abort(contextGin, apierror.UnprocessableEntity(strings.ToUpper(resource[:1])+resource[1:]+" ID is required"))
			return
		}
		owned, lookupErr := rule.Lookup(contextGin.Request.Context(), resourceID)
		if lookupErr != nil {
			if errors.Is(lookupErr, ErrResourceNotFound) {
				apierror.Abort(contextGin, apierror.NotFound(notFoundMessage).Wrap(lookupErr))
				return
			}
			apierror.Abort(contextGin, lookupErr)
			return
		}
		if !user.IsAdmin() && owned.OwnerUserID() != user.UserID {
			apierror.Abort(contextGin, apierror.Forbidden(forbiddenMessage))
			return
		}
		contextGin.Set(ownedResourceContextKey, owned)
		contextGin.Next()
	}
}

// OwnedResourceFromContext returns the resource attached by RequireOwner.
func OwnedResourceFromContext(contextGin *gin.Context) (OwnedResource, bool) {
	value, exists := contextGin.Get(ownedResourceContextKey)
	if !exists {
		return nil, false
	}
	owned, ok := value.(OwnedResource)
	return owned, ok
}
