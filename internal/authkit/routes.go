package authkit

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/pkg/sessiontoken"
	"go.uber.org/zap"
)

type registerRequest struct {
	FirstName     string `json:"firstName" binding:"required,max=100"`
	MiddleName    string `json:"middleName" binding:"max=100"`
	LastName      string `json:"lastName" binding:"required,max=100"`
	ExtensionName string `json:"extensionName" binding:"max=20"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MountAuthRoutes registers /auth/register, /auth/login and /auth/logout.
func (service *Service) MountAuthRoutes(router gin.IRouter) {
	router.POST("/auth/register", service.handleRegister)
	router.POST("/auth/login", service.handleLogin)
	router.POST("/auth/logout", service.handleLogout)
}

func (service *Service) handleRegister(contextGin *gin.Context) {
	var inbound registerRequest
	if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
		apierror.Abort(contextGin, apierror.FromBinding(bindErr))
		return
	}
	if formatErr := accounts.ValidatePasswordFormat(inbound.Password); formatErr != nil {
		apierror.Abort(contextGin, apierror.UnprocessableEntity("", apierror.FieldError{
			Path:    "password",
			Message: "password must be 8 to 32 characters with a digit, a lowercase letter, an uppercase letter and a special character",
		}).Wrap(formatErr))
		return
	}

	_, createErr := service.users.Create(contextGin.Request.Context(), accounts.NewUser{
		FirstName:     inbound.FirstName,
		MiddleName:    inbound.MiddleName,
		LastName:      inbound.LastName,
		ExtensionName: inbound.ExtensionName,
		Email:         inbound.Email,
		Password:      inbound.Password,
		Role:          accounts.RoleUser,
	})
	if createErr != nil {
		if errors.Is(createErr, accounts.ErrEmailTaken) {
			service.metrics.Increment(metricRegisterDuplicate)
			apierror.Abort(contextGin, apierror.Conflict("Email is already registered").Wrap(createErr))
			return
		}
		apierror.Abort(contextGin, createErr)
		return
	}
	service.metrics.Increment(metricRegisterSuccess)
	contextGin.Status(http.StatusCreated)
}

func (service *Service) handleLogin(contextGin *gin.Context) {
	var inbound loginRequest
	if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
		apierror.Abort(contextGin, apierror.FromBinding(bindErr))
		return
	}
	ctx := contextGin.Request.Context()
	clientIP := contextGin.ClientIP()

	if limitErr := service.limiter.Check(ctx, inbound.Email, clientIP); limitErr != nil {
		if errors.Is(limitErr, ErrRateLimited) {
			service.metrics.Increment(metricLoginRateLimited)
			apierror.Abort(contextGin, apierror.TooManyRequests("").Wrap(limitErr))
			return
		}
		service.logger.Warn("login limiter unavailable", zap.String("code", "auth.login.limiter_unavailable"), zap.Error(limitErr))
	}

	user, authErr := service.users.Authenticate(ctx, inbound.Email, inbound.Password)
	if authErr != nil {
		if errors.Is(authErr, accounts.ErrInvalidCredentials) {
			service.metrics.Increment(metricLoginFailure)
			if recordErr := service.limiter.RecordFailure(ctx, inbound.Email, clientIP); recordErr != nil {
				service.logger.Warn("login limiter unavailable", zap.String("code", "auth.login.limiter_unavailable"), zap.Error(recordErr))
			}
			apierror.Abort(contextGin, apierror.Unauthorized("").Wrap(authErr))
			return
		}
		apierror.Abort(contextGin, authErr)
		return
	}

	payload := sessiontoken.Payload{UserID: user.UserID, Role: string(user.Role)}
	accessToken, _, accessErr := service.codec.SignAccess(payload)
	if accessErr != nil {
		apierror.Abort(contextGin, accessErr)
		return
	}
	refreshToken, _, refreshErr := service.codec.SignRefresh(payload)
	if refreshErr != nil {
		apierror.Abort(contextGin, refreshErr)
		return
	}
	if resetErr := service.limiter.Reset(ctx, inbound.Email, clientIP); resetErr != nil {
		service.logger.Warn("login limiter unavailable", zap.String("code", "auth.login.limiter_unavailable"), zap.Error(resetErr))
	}

	service.policy.Write(contextGin, AccessCookieName, CookieAccess, accessToken)
	service.policy.Write(contextGin, RefreshCookieName, CookieRefresh, refreshToken)
	service.metrics.Increment(metricLoginSuccess)
	contextGin.Status(http.StatusNoContent)
}

func (service *Service) handleLogout(contextGin *gin.Context) {
	service.policy.ClearSession(contextGin)
	service.metrics.Increment(metricLogout)
	contextGin.Status(http.StatusNoContent)
}
