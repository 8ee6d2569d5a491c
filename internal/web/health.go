package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HandleHealth answers 200 when the database responds and 503 otherwise.
func HandleHealth(logger *zap.Logger, checker HealthChecker) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(contextGin.Request.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				logger.Warn("health check failed",
					zap.String("code", "api.health.unavailable"),
					zap.Error(err))
				contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
