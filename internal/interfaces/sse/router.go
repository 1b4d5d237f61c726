package sse

import (
	"github.com/gin-gonic/gin"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

// InitSSERouter mounts GET /sse on rg behind the given middlewares
func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	sseHandler := NewServerSentEventHandler(hubInstance, logger)

	handlers := append(append([]gin.HandlerFunc{}, middlewares...), sseHandler.Connect)
	rg.GET("/sse", handlers...)
}
