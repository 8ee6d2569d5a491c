package authkit

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/pkg/sessiontoken"
	"go.uber.org/zap"
)

// Gate authenticates every request from its session cookies.
//
// The refresh cookie is mandatory. A valid access token admits the request
// directly; otherwise the refresh token is verified, a new access token is
// set, and the refresh token itself is renewed once it enters the renewal
// window. A failed refresh verification clears both cookies. The resolved
// user is attached as Authenticated.
func (service *Service) Gate() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		refreshToken := readCookie(contextGin.Request, RefreshCookieName)
		if refreshToken == "" {
			service.metrics.Increment(metricGateMissingRefresh)
			apierror.Abort(contextGin, apierror.Unauthorized("This action requires logging in first"))
			return
		}

		payload, accessValid := service.verifyAccess(readCookie(contextGin.Request, AccessCookieName))
		if accessValid {
			service.metrics.Increment(metricGateAccessValid)
		} else {
			refreshClaims, refreshErr := service.codec.VerifyRefresh(refreshToken)
			if refreshErr != nil {
				service.metrics.Increment(metricGateRefreshInvalid)
				service.policy.ClearSession(contextGin)
				apierror.Abort(contextGin, refreshErr)
				return
			}
			payload = refreshClaims.Payload()
			if reissueErr := service.reissue(contextGin, payload, refreshClaims); reissueErr != nil {
				apierror.Abort(contextGin, reissueErr)
				return
			}
		}

		user, lookupErr := service.users.FindByIdentity(contextGin.Request.Context(), payload.UserID, accounts.Role(payload.Role))
		if lookupErr != nil {
			if errors.Is(lookupErr, accounts.ErrUserNotFound) {
				service.metrics.Increment(metricGateUserMissing)
				apierror.Abort(contextGin, apierror.NotFound("User not found").Wrap(lookupErr))
				return
			}
			service.logger.Error("user lookup failed",
				zap.String("code", "auth.gate.user_lookup_failed"),
				zap.String("user_id", payload.UserID),
				zap.Error(lookupErr))
			apierror.Abort(contextGin, lookupErr)
			return
		}

		attachIdentity(contextGin, Authenticated{User: user})
		contextGin.Next()
	}
}

func (service *Service) verifyAccess(accessToken string) (sessiontoken.Payload, bool) {
	if accessToken == "" {
		return sessiontoken.Payload{}, false
	}
	claims, err := service.codec.VerifyAccess(accessToken)
	if err != nil {
		return sessiontoken.Payload{}, false
	}
	return claims.Payload(), true
}

func (service *Service) reissue(contextGin *gin.Context, payload sessiontoken.Payload, refreshClaims *sessiontoken.Claims) error {
	accessToken, _, signErr := service.codec.SignAccess(payload)
	if signErr != nil {
		return signErr
	}
	service.policy.Write(contextGin, AccessCookieName, CookieAccess, accessToken)
	service.metrics.Increment(metricGateAccessReissued)

	remaining := refreshClaims.GetExpiresAt().Sub(service.codec.Now())
	if remaining >= service.configuration.renewalWindow() {
		return nil
	}
	refreshToken, _, refreshErr := service.codec.SignRefresh(payload)
	if refreshErr != nil {
		return refreshErr
	}
	service.policy.Write(contextGin, RefreshCookieName, CookieRefresh, refreshToken)
	service.metrics.Increment(metricGateRefreshReissued)
	return nil
}
