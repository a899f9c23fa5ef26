package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kendall-kelly/home-services-api/config"
	"github.com/kendall-kelly/home-services-api/controllers"
	"github.com/kendall-kelly/home-services-api/logger"
	"github.com/kendall-kelly/home-services-api/metrics"
	"github.com/kendall-kelly/home-services-api/middleware"
	"github.com/kendall-kelly/home-services-api/middleware/requestid"
	"github.com/kendall-kelly/home-services-api/models"
	"github.com/kendall-kelly/home-services-api/repository"
	"github.com/kendall-kelly/home-services-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	zl.Info("starting home services API",
		zap.String("env", cfg.GoEnv),
		zap.String("env_file", cfg.EnvFile),
	)

	db, err := config.Acquire(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := config.Release(); err != nil {
			zl.Warn("failed to close database", zap.Error(err))
		}
	}()

	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	zl.Info("database migration completed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	runner := services.NewTaskRunner(zl, m)

	app, err := newApp(ctx, cfg, db, zl, m, runner)
	if err != nil {
		return err
	}
	defer app.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http server shutdown", zap.Error(err))
	}
	// Let in-flight notifications and projections finish before the store closes.
	if err := runner.Close(shutdownCtx); err != nil {
		zl.Warn("background tasks did not finish", zap.Error(err))
	}
	return nil
}

// app is the wired HTTP surface plus the resources it owns.
type app struct {
	router *gin.Engine
	redis  *redis.Client
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// newApp wires stores, services and controllers. Redis, S3 and the
// notification endpoint are optional and disabled when unconfigured.
func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB, zl *zap.Logger, m *metrics.Metrics, runner *services.TaskRunner) (*app, error) {
	a := &app{}
	store := repository.NewStore(db)
	validate := services.NewValidator()

	verifier, err := newVerifier(cfg)
	if err != nil {
		return nil, err
	}
	resolver := services.NewIdentityResolver(verifier, store.Users, zl)

	var projections services.ProjectionStore
	if cfg.RedisURL != "" {
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		projections = services.NewRedisProjectionStore(client)
		zl.Info("live status projection enabled")
	} else {
		zl.Warn("REDIS_URL not set, live status projection disabled")
	}
	projector := services.NewProjector(projections, runner, cfg.ProjectionTimeout, zl, m)

	var notifier services.Notifier
	if cfg.NotificationsEnabled() {
		notifier = services.NewHTTPNotifier(cfg.WebsocketServerURL, &http.Client{Timeout: cfg.NotificationTimeout})
	} else {
		zl.Warn("WEBSOCKET_SERVER_URL not set, provider notifications disabled")
	}
	fanOut := services.NewFanOut(store.Providers, notifier, runner, cfg.NotificationTimeout, cfg.NotificationConcurrency, zl, m)

	var documents *services.DocumentService
	if cfg.S3Enabled() {
		s3, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		documents = services.NewDocumentService(s3)
	} else {
		zl.Warn("AWS_S3_BUCKET not set, document uploads disabled")
	}

	var userInfo services.UserInfoFetcher
	if cfg.Auth0Domain != "" {
		userInfo = services.NewAuth0Service(cfg.Auth0Domain)
	}

	handlers := controllers.Handlers{
		Users:           controllers.NewUserController(services.NewUserService(store.Users, userInfo, validate, zl)),
		Providers:       controllers.NewProviderController(services.NewProviderService(store.Providers, documents, projector, validate, zl)),
		ServiceRequests: controllers.NewServiceRequestController(services.NewServiceRequestService(store.ServiceRequests, fanOut, validate, zl, m)),
		JobCards:        controllers.NewJobCardController(services.NewJobCardService(store.JobCards, store.Users, projector, validate, zl, m)),
		Reviews:         controllers.NewReviewController(services.NewReviewService(store, services.NewRatingAggregator(store.Reviews, store.Providers, zl), validate, zl)),
		Categories:      controllers.NewCategoryController(services.NewCategoryService(store.Categories, validate, zl)),
		Recommendations: controllers.NewRecommendationController(services.NewRecommendationService(store.Recommendations, store.Users, validate, zl)),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		corsMiddleware(cfg),
		requestid.Middleware(),
		logger.GinMiddleware(zl),
		m.GinMiddleware(),
		middleware.Recovery(zl),
		middleware.Language(),
	)

	router.GET("/health", healthCheck)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	api.GET("/health", healthCheck)
	api.GET("/database/status", databaseStatus(db))
	controllers.RegisterRoutes(api, handlers,
		middleware.Authenticate(resolver, zl),
		middleware.OptionalAuthenticate(resolver, zl),
	)

	a.router = router
	return a, nil
}

// newVerifier accepts Auth0 tokens, locally signed tokens, or both.
func newVerifier(cfg *config.Config) (services.TokenVerifier, error) {
	var chain services.ChainVerifier
	if cfg.Auth0Domain != "" {
		v, err := services.NewAuth0Verifier(cfg.Auth0Domain, cfg.Auth0Audience)
		if err != nil {
			return nil, fmt.Errorf("failed to set up Auth0 verification: %w", err)
		}
		chain = append(chain, v)
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, services.NewHMACVerifier(cfg.JWTSecret))
	}
	if len(chain) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return chain, nil
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept-Language", requestid.HeaderKey},
		ExposeHeaders: []string{requestid.HeaderKey},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			break
		}
	}
	if !corsCfg.AllowAllOrigins {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	if !corsCfg.AllowAllOrigins && len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	}
	return cors.New(corsCfg)
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Home Services API is running",
	})
}

// databaseStatus checks database connectivity and lists the migrated tables
func databaseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to get database instance",
				},
			})
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_QUERY_ERROR",
					"message": "Failed to query tables",
				},
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"tables":  tables,
		})
	}
}
