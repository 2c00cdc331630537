package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/authforge/identity-system/internal/api/handler"
	"github.com/authforge/identity-system/internal/api/middleware"
	"github.com/authforge/identity-system/internal/core/domain"
	"github.com/authforge/identity-system/internal/core/service"
	"github.com/authforge/identity-system/internal/infrastructure/config"
	mongostore "github.com/authforge/identity-system/internal/infrastructure/db/mongo"
	redisinfra "github.com/authforge/identity-system/internal/infrastructure/db/redis"
	"github.com/authforge/identity-system/internal/infrastructure/workers"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, pool *workers.Pool, log zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Dependencies ---
	tokens, err := service.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost, pool)
	store := mongostore.NewAccountStore(db)
	throttle := redisinfra.NewLoginThrottle(rdb, cfg.Auth.MaxLoginAttempts)
	credentials := service.NewCredentialService(store, hasher, tokens, tokens, throttle, log)

	authHandler := handler.NewAuthHandler(credentials)
	guard := middleware.Auth(tokens)
	accessOnly := middleware.RequireKind(domain.TokenKindAccess)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/refresh", authHandler.Refresh)
	e.GET("/auth/profile", authHandler.Profile, guard, accessOnly)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e, nil
}
