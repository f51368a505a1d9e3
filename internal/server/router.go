package server

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/config"
	"github.com/1dlvb/async-bank-app/internal/handler"
	"github.com/1dlvb/async-bank-app/internal/middleware"
	"github.com/1dlvb/async-bank-app/internal/service"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(
	cfg *config.Config,
	log *zap.Logger,
	store handler.Pinger,
	redisClient *redis.Client,
	accounts *service.AccountService,
	transfers *service.TransferService,
	deposits *service.DepositService,
) *gin.Engine {
	if cfg.DevMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))

	// Create handlers
	healthHandler := handler.NewHealthHandler(store, redisClient)
	accountHandler := handler.NewAccountHandler(accounts, log)
	transferHandler := handler.NewTransferHandler(transfers, log)
	depositHandler := handler.NewDepositHandler(deposits, log)
	authHandler := handler.NewAuthHandler(cfg.JWTSecret, cfg.DevMode)

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	// Dev-only auth endpoint (only available in DEV_MODE)
	if cfg.DevMode {
		router.POST("/auth/dev/token", authHandler.GenerateDevToken)
	}

	// API v1 routes (auth required)
	v1 := router.Group("/v1")
	{
		v1.Use(middleware.Auth(cfg.JWTSecret))

		if redisClient != nil {
			rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimitRPS, cfg.RateLimitBurst, log)
			v1.Use(rateLimiter.Middleware())
		}

		// Account endpoints
		accountGroup := v1.Group("/accounts")
		{
			accountGroup.POST("", accountHandler.Create)
			accountGroup.GET("/:id", accountHandler.Get)
			accountGroup.POST("/balances", accountHandler.UpdateBalances)
			accountGroup.POST("/balances/async", accountHandler.UpdateBalancesAsync)
		}

		// Transfer endpoints
		transferGroup := v1.Group("/transfers")
		{
			transferGroup.POST("", transferHandler.Create)
			transferGroup.POST("/safe", transferHandler.Safe)
			transferGroup.POST("/batch", transferHandler.Batch)
			transferGroup.POST("/batch/async", transferHandler.BatchAsync)
		}

		// Volatility endpoint
		v1.GET("/volatility", depositHandler.Volatility)

		// Deposit endpoints
		depositGroup := v1.Group("/deposits")
		{
			depositGroup.POST("", depositHandler.Create)
			depositGroup.GET("/:id", depositHandler.Get)
			depositGroup.GET("/:id/statistics", depositHandler.Statistics)
			depositGroup.POST("/statistics", depositHandler.StatisticsBatch)
			depositGroup.POST("/statistics/async", depositHandler.StatisticsBatchAsync)
		}
	}

	return router
}
