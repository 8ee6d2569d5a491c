package web

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/internal/authkit"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP surface is mounted over.
type Dependencies struct {
	Auth   *authkit.Service
	Users  UserRepository
	Stores StoreRepository
	Health HealthChecker
	// Metrics exposes /metrics when set.
	Metrics prometheus.Gatherer
	Logger  *zap.Logger
}

// MountRoutes registers the auth, user, store and operational routes.
// Everything under /users and /stores runs behind the authentication gate.
func MountRoutes(router *gin.Engine, dependencies Dependencies) {
	if dependencies.Auth == nil {
		panic("auth service is required")
	}
	userHandlers := NewUserHandlers(dependencies.Users)
	storeHandlers := NewStoreHandlers(dependencies.Stores)

	router.GET("/healthz", HandleHealth(dependencies.Logger, dependencies.Health))
	if dependencies.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dependencies.Metrics, promhttp.HandlerOpts{})))
	}

	dependencies.Auth.MountAuthRoutes(router)

	users := router.Group("/users", dependencies.Auth.Gate())
	users.GET("/me", userHandlers.HandleMe)
	users.PATCH("/details", userHandlers.HandleUpdateDetails)
	users.GET("", authkit.RequireAdmin(), userHandlers.HandleListUsers)
	users.GET("/:userId", authkit.RequireAdmin(), userHandlers.HandleGetUser)

	stores := router.Group("/stores", dependencies.Auth.Gate())
	requireOwner := authkit.RequireOwner(storeHandlers.OwnershipRule())
	stores.GET("", storeHandlers.HandleListStores)
	stores.POST("", storeHandlers.HandleCreateStore)
	stores.GET("/:storeId", requireOwner, storeHandlers.HandleGetStore)
	stores.PATCH("/:storeId", requireOwner, storeHandlers.HandleUpdateStore)
	stores.DELETE("/:storeId", requireOwner, storeHandlers.HandleDeleteStore)

	router.NoRoute(apierror.NoRoute)
}
