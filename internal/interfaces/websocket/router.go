package websocket

import (
	"github.com/gin-gonic/gin"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

// InitWebSocketRouter initializes WebSocket routes
func InitWebSocketRouter(logger logger.Logger, hubInstance *hub.Hub, rg *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	wsHandler := NewWebSocketHandler(hubInstance, logger)

	handlers := append(append([]gin.HandlerFunc{}, middlewares...), wsHandler.Connect)
	rg.GET("/ws", handlers...)
}
