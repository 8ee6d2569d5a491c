package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/internal/authkit"
)

// UserRepository is the user persistence used by the controllers.
type UserRepository interface {
	List(ctx context.Context) ([]accounts.User, error)
	FindByUserID(ctx context.Context, userID string) (*accounts.User, error)
	UpdateName(ctx context.Context, user *accounts.User, update accounts.NameUpdate) error
}

type updateDetailsRequest struct {
	FirstName     string `json:"firstName" binding:"max=100"`
	MiddleName    string `json:"middleName" binding:"max=100"`
	LastName      string `json:"lastName" binding:"max=100"`
	ExtensionName string `json:"extensionName" binding:"max=20"`
}

// UserHandlers serves the /users resource.
type UserHandlers struct {
	users UserRepository
}

// NewUserHandlers constructs the user controllers.
func NewUserHandlers(users UserRepository) *UserHandlers {
	if users == nil {
		panic("user repository is required")
	}
	return &UserHandlers{users: users}
}

// HandleMe returns the profile of the authenticated user.
func (handlers *UserHandlers) HandleMe(contextGin *gin.Context) {
	user, ok := authkit.CurrentUser(contextGin)
	if !ok {
		apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
		return
	}
	contextGin.JSON(http.StatusOK, user.View())
}

// HandleUpdateDetails changes the provided name fields of the authenticated user.
func (handlers *UserHandlers) HandleUpdateDetails(contextGin *gin.Context) {
	user, ok := authkit.CurrentUser(contextGin)
	if !ok {
		apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
		return
	}
	var inbound updateDetailsRequest
	if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
		apierror.Abort(contextGin, apierror.FromBinding(bindErr))
		return
	}
	updateErr := handlers.users.UpdateName(contextGin.Request.Context(), user, accounts.NameUpdate{
		FirstName:     inbound.FirstName,
		MiddleName:    inbound.MiddleName,
		LastName:      inbound.LastName,
		ExtensionName: inbound.ExtensionName,
	})
	if updateErr != nil {
		apierror.Abort(contextGin, updateErr)
		return
	}
	contextGin.Status(http.StatusNoContent)
}

// HandleListUsers returns every user without credentials.
func (handlers *UserHandlers) HandleListUsers(contextGin *gin.Context) {
	users, err := handlers.users.List(contextGin.Request.Context())
	if err != nil {
		apierror.Abort(contextGin, err)
		return
	}
	views := make([]accounts.UserView, 0, len(users))
	for index := range users {
		views = append(views, users[index].View())
	}
	contextGin.JSON(http.StatusOK, views)
}

// HandleGetUser returns the user named by the userId path parameter.
func (handlers *UserHandlers) HandleGetUser(contextGin *gin.Context) {
	user, err := handlers.users.FindByUserID(contextGin.Request.Context(), contextGin.Param("userId"))
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			apierror.Abort(contextGin, apierror.NotFound("User not found").Wrap(err))
			return
		}
		apierror.Abort(contextGin, err)
		return
	}
	contextGin.JSON(http.StatusOK, user.View())
}
