package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/internal/authkit"
	"github.com/tyemirov/storekeep/internal/web"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "storekeep",
		Short:   "Multi-tenant store management API with cookie-based dual-token sessions",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("database_url", "sqlite:storekeep.db", "Database URL (postgres:// or sqlite:)")
	rootCmd.Flags().String("access_secret", "", "HS256 signing secret for access tokens")
	rootCmd.Flags().String("refresh_secret", "", "HS256 signing secret for refresh tokens")
	rootCmd.Flags().String("jwt_issuer", "storekeep", "Issuer claim for session tokens")
	rootCmd.Flags().Duration("access_ttl", authkit.DefaultAccessTTL, "Access token TTL")
	rootCmd.Flags().Duration("refresh_ttl", authkit.DefaultRefreshTTL, "Refresh token TTL")
	rootCmd.Flags().Duration("refresh_renewal_window", authkit.DefaultRenewalWindow, "Remaining refresh lifetime under which the refresh token is reissued")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().String("same_site", "strict", "SameSite mode for session cookies (strict, lax, none)")
	rootCmd.Flags().Bool("production", false, "Mark session cookies Secure")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients (forces SameSite=None cookies)")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().String("redis_url", "", "Redis URL for login rate limiting; empty disables it")
	rootCmd.Flags().Int("login_max_attempts", authkit.DefaultMaxLoginAttempts, "Failed logins allowed per email or IP within the window")
	rootCmd.Flags().Duration("login_window", authkit.DefaultLoginWindow, "Login rate limit window")
	rootCmd.Flags().String("admin_email", "", "Email of the bootstrap admin created when no admin exists")
	rootCmd.Flags().String("admin_password", "", "Password of the bootstrap admin")
	rootCmd.Flags().Bool("enable_metrics", true, "Expose prometheus metrics on /metrics")

	for _, name := range []string{
		"listen_addr", "database_url", "access_secret", "refresh_secret", "jwt_issuer",
		"access_ttl", "refresh_ttl", "refresh_renewal_window", "cookie_domain", "same_site",
		"production", "enable_cors", "cors_allowed_origins", "redis_url", "login_max_attempts",
		"login_window", "admin_email", "admin_password", "enable_metrics",
	} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	configCodeMissingAccessSecret     = "config.missing_access_secret"
	configCodeMissingRefreshSecret    = "config.missing_refresh_secret"
	configCodeSharedSecret            = "config.shared_secret"
	configCodeInvalidAccessTTL        = "config.invalid_access_ttl"
	configCodeInvalidRefreshTTL       = "config.invalid_refresh_ttl"
	configCodeInvalidRenewalWindow    = "config.invalid_renewal_window"
	configCodeInvalidSameSite         = "config.invalid_same_site"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeDatabaseInit            = "config.database_init"
	configCodeRedisInit               = "config.redis_init"
	configCodeIncompleteAdmin         = "config.incomplete_admin_credentials"
	configCodeInvalidAdminPassword    = "config.invalid_admin_password"
	configCodeAdminBootstrap          = "config.admin_bootstrap"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (authkit.ServerConfig, error) {
	accessSecret := viper.GetString("access_secret")
	if accessSecret == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingAccessSecret, "access_secret must be provided")
	}

	refreshSecret := viper.GetString("refresh_secret")
	if refreshSecret == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingRefreshSecret, "refresh_secret must be provided")
	}
	if refreshSecret == accessSecret {
		return authkit.ServerConfig{}, configError(configCodeSharedSecret, "access_secret and refresh_secret must differ")
	}

	accessTTL := viper.GetDuration("access_ttl")
	if accessTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_ttl must be greater than zero")
	}

	refreshTTL := viper.GetDuration("refresh_ttl")
	if refreshTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_ttl must be greater than zero")
	}

	renewalWindow := viper.GetDuration("refresh_renewal_window")
	if renewalWindow <= 0 {
		renewalWindow = authkit.DefaultRenewalWindow
	}
	if renewalWindow >= refreshTTL {
		return authkit.ServerConfig{}, configError(configCodeInvalidRenewalWindow, "refresh_renewal_window must be shorter than refresh_ttl")
	}

	sameSite, sameSiteErr := parseSameSite(viper.GetString("same_site"))
	if sameSiteErr != nil {
		return authkit.ServerConfig{}, sameSiteErr
	}
	if viper.GetBool("enable_cors") {
		sameSite = http.SameSiteNoneMode
	}

	issuer := strings.TrimSpace(viper.GetString("jwt_issuer"))
	if issuer == "" {
		issuer = "storekeep"
	}

	return authkit.ServerConfig{
		AccessSigningKey:  []byte(accessSecret),
		RefreshSigningKey: []byte(refreshSecret),
		Issuer:            issuer,
		AccessTTL:         accessTTL,
		RefreshTTL:        refreshTTL,
		RenewalWindow:     renewalWindow,
		CookieDomain:      viper.GetString("cookie_domain"),
		SameSiteMode:      sameSite,
		SecureCookies:     viper.GetBool("production"),
	}, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "strict":
		return http.SameSiteStrictMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, configError(configCodeInvalidSameSite, fmt.Sprintf("same_site must be strict, lax or none, got %q", value))
	}
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}
	startupCtx := context.Background()

	database, databaseErr := accounts.Open(startupCtx, viper.GetString("database_url"))
	if databaseErr != nil {
		return fmt.Errorf("%s: %w", configCodeDatabaseInit, databaseErr)
	}
	defer func() { _ = database.Close() }()
	logger.Info("database ready", zap.String("driver", database.Driver()))

	if bootstrapErr := bootstrapAdmin(startupCtx, logger, database.Users()); bootstrapErr != nil {
		return bootstrapErr
	}

	limiter, redisClient, limiterErr := buildLoginLimiter(startupCtx)
	if limiterErr != nil {
		return limiterErr
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		logger.Info("login rate limiting enabled")
	}

	codec, codecErr := serverConfig.NewCodec(nil)
	if codecErr != nil {
		return codecErr
	}

	serviceOptions := []authkit.Option{authkit.WithLogger(logger), authkit.WithLoginLimiter(limiter)}
	var registry *prometheus.Registry
	if viper.GetBool("enable_metrics") {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		serviceOptions = append(serviceOptions, authkit.WithMetrics(authkit.NewPrometheusMetrics(registry)))
	}

	authService, serviceErr := authkit.NewService(serverConfig, codec, database.Users(), serviceOptions...)
	if serviceErr != nil {
		return serviceErr
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(zapLoggerMiddleware(logger))
	if registry != nil {
		router.Use(web.RequestMetrics(registry))
	}

	if viper.GetBool("enable_cors") {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, viper.GetStringSlice("cors_allowed_origins"))
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}
	router.Use(apierror.Responder(logger))

	dependencies := web.Dependencies{
		Auth:   authService,
		Users:  database.Users(),
		Stores: database.Stores(),
		Health: database,
		Logger: logger,
	}
	if registry != nil {
		dependencies.Metrics = registry
	}
	web.MountRoutes(router, dependencies)

	listenAddr := viper.GetString("listen_addr")
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func bootstrapAdmin(ctx context.Context, logger *zap.Logger, users *accounts.UserRepository) error {
	adminEmail := strings.TrimSpace(viper.GetString("admin_email"))
	adminPassword := viper.GetString("admin_password")
	if adminEmail == "" && adminPassword == "" {
		return nil
	}
	if adminEmail == "" || adminPassword == "" {
		return configError(configCodeIncompleteAdmin, "admin_email and admin_password must be provided together")
	}
	if formatErr := accounts.ValidatePasswordFormat(adminPassword); formatErr != nil {
		return configError(configCodeInvalidAdminPassword, formatErr.Error())
	}
	created, err := users.EnsureAdmin(ctx, adminEmail, adminPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", configCodeAdminBootstrap, err)
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("email", adminEmail))
	}
	return nil
}

func buildLoginLimiter(ctx context.Context) (*authkit.LoginLimiter, *redis.Client, error) {
	redisURL := strings.TrimSpace(viper.GetString("redis_url"))
	if redisURL == "" {
		return nil, nil, nil
	}
	options, parseErr := redis.ParseURL(redisURL)
	if parseErr != nil {
		return nil, nil, fmt.Errorf("%s: %w", configCodeRedisInit, parseErr)
	}
	client := redis.NewClient(options)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%s: %w", configCodeRedisInit, pingErr)
	}
	limiter := authkit.NewLoginLimiter(client, authkit.LoginLimiterConfig{
		MaxAttempts: viper.GetInt("login_max_attempts"),
		Window:      viper.GetDuration("login_window"),
	})
	return limiter, client, nil
}

const requestIDHeader = "X-Request-ID"

func requestIDMiddleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		requestID := strings.TrimSpace(contextGin.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		contextGin.Set("request_id", requestID)
		contextGin.Header(requestIDHeader, requestID)
		contextGin.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.String("request_id", contextGin.GetString("request_id")),
			zap.Duration("elapsed", duration),
		)
	}
}
