package router

import (
	"github.com/gin-gonic/gin"

	"github.com/dietvite/backend/internal/api"
	"github.com/dietvite/backend/internal/middleware"
	"github.com/dietvite/backend/internal/service"
)

// Deps are the handlers and middleware inputs the router mounts
type Deps struct {
	AuthHandler      *api.AuthHandler
	ChallengeHandler *api.ChallengeHandler
	HealthHandler    *api.HealthHandler
	AuthService      service.IAuthService
	QueryLimiter     *middleware.RateLimiter
	CORSOrigins      []string
}

// SetupRouter configures the application routes
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), middleware.ErrorHandler())

	// CORS middleware
	if len(deps.CORSOrigins) > 0 {
		router.Use(middleware.CORS(deps.CORSOrigins))
	}

	router.GET("/health", deps.HealthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	deps.AuthHandler.RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.AuthService))

	var queryLimit gin.HandlerFunc
	if deps.QueryLimiter != nil {
		queryLimit = deps.QueryLimiter.RateLimitMiddleware()
	}
	deps.ChallengeHandler.RegisterRoutes(protected, queryLimit)

	return router
}
