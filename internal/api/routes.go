package api

import (
	"github.com/doppel-dev/doppel/internal/config"
	"github.com/doppel-dev/doppel/internal/infra/redis"
	"github.com/doppel-dev/doppel/internal/repository"
	"github.com/doppel-dev/doppel/internal/similarity"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	cfg *config.Config,
	functionsRepo *repository.FunctionsRepository,
	resultsRepo *repository.ResultsRepository,
	manager *similarity.Manager,
	redisClient *redis.Client,
) *gin.Engine {
	router := gin.Default()

	// Create handler
	handler := NewHandler(cfg, functionsRepo, resultsRepo, manager, redisClient)

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/analyze", handler.Analyze)
		api.GET("/analyze/:corpusId/status", handler.Status)
		api.GET("/reports/:corpusId", handler.Report)
	}

	return router
}
