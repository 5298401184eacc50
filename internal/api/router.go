// Package api wires the license server HTTP routes and middleware.
package api

import (
	"fmt"

	"github.com/go4itsports/licensing/internal/api/handlers"
	"github.com/go4itsports/licensing/internal/api/middleware"
	"github.com/go4itsports/licensing/internal/auth"
	"github.com/go4itsports/licensing/internal/config"
	"github.com/go4itsports/licensing/internal/license"
	"github.com/go4itsports/licensing/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BuildInfo carries version information for the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates the license server router with all routes registered.
func NewRouter(cfg config.Config, service *license.Service, issuer *auth.TokenIssuer, db handlers.Pinger, info BuildInfo, logger zerolog.Logger) (*Router, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Engine.Use(metrics.Middleware())

	healthHandler := handlers.NewHealthHandler(db, info.Version, info.Commit, info.BuildDate)
	healthHandler.RegisterRoutes(r.Engine)
	r.Engine.GET("/metrics", metrics.Handler())

	api := r.Engine.Group("/api")

	// Validation endpoint, rate limited per client IP.
	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	validated := api.Group("")
	validated.Use(rateLimiter)
	handlers.NewValidateHandler(service, logger).RegisterRoutes(validated)

	// Customer portal auth.
	handlers.NewAuthHandler(service, issuer, logger).RegisterRoutes(api)

	// Customer portal routes, bearer token required.
	protected := api.Group("")
	protected.Use(middleware.RequireCustomer(issuer))
	handlers.NewCustomerHandler(service, logger).RegisterRoutes(protected)

	r.logger.Info().Msg("router initialized")
	return r, nil
}
