package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-scoreboard-sse/internal/infrastructure/config"
	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
	"go-scoreboard-sse/internal/interfaces/middleware"
	"go-scoreboard-sse/internal/interfaces/rest/v1/handler"
	"go-scoreboard-sse/internal/interfaces/sse"
	"go-scoreboard-sse/internal/interfaces/websocket"
	"go-scoreboard-sse/internal/port/inbound"
)

func InitRouter(
	cfg *config.SystemConfig,
	hubInstance *hub.Hub,
	games inbound.GameUseCase,
	reg *prometheus.Registry,
	log logger.Logger,
) http.Handler {
	if cfg.Log.Level != logger.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.AdminTokenHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	// Health check endpoint
	rootGroup.GET("/healthz", func(c *gin.Context) {
		isRunning := hubInstance.IsRunning()
		code, status := http.StatusOK, "healthy"
		if !isRunning {
			code, status = http.StatusServiceUnavailable, "unavailable"
		}
		c.JSON(code, gin.H{
			"status":      status,
			"hub_running": isRunning,
			"connections": hubInstance.ConnectionCount(),
		})
	})
	rootGroup.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Push streams share one admission limiter
	limiter := middleware.NewRateLimiter(cfg.Realtime.AdmissionRatePerSec, cfg.Realtime.AdmissionBurst)
	sse.InitSSERouter(log, hubInstance, rootGroup, middleware.RateLimit(limiter))
	websocket.InitWebSocketRouter(log, hubInstance, rootGroup, middleware.RateLimit(limiter))

	apiGroup := rootGroup.Group("/api/v1")
	handler.NewRealtimeHandler(hubInstance, log).Register(apiGroup, middleware.AdminToken(cfg.Admin.Token))
	handler.NewGameHandler(games, log).Register(apiGroup)

	return router
}
