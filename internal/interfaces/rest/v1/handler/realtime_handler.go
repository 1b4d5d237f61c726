package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

// RealtimeHandler exposes explicit disconnect and the maintenance API of the hub.
type RealtimeHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

type DisconnectRequest struct {
	ClientID string `json:"clientId" binding:"required"`
}

type DisconnectResponse struct {
	WasConnected     bool `json:"wasConnected"`
	RemainingClients int  `json:"remainingClients"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

// NewRealtimeHandler creates the connection management endpoints
func NewRealtimeHandler(hubInstance *hub.Hub, logger logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "realtime"),
	}
}

// Disconnect releases a client id. Unknown ids are not an error.
func (h *RealtimeHandler) Disconnect(c *gin.Context) {
	var req DisconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clientId is required"})
		return
	}

	wasConnected, remaining := h.hub.Disconnect(req.ClientID)
	c.JSON(http.StatusOK, DisconnectResponse{
		WasConnected:     wasConnected,
		RemainingClients: remaining,
	})
}

// Status reports the live connection count and the oldest and newest admission
func (h *RealtimeHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Status())
}

// Clear force-clears the registry. Close failures are logged by the hub, never returned.
func (h *RealtimeHandler) Clear(c *gin.Context) {
	result := h.hub.ForceClear()
	h.logger.Warnf("Registry cleared by admin request from %s: %d removed", c.ClientIP(), result.Removed)
	c.JSON(http.StatusOK, ClearResponse{Removed: result.Removed})
}

// Register mounts the disconnect route on api and the maintenance routes under
// /admin/realtime behind adminMiddleware.
func (h *RealtimeHandler) Register(api *gin.RouterGroup, adminMiddleware ...gin.HandlerFunc) {
	api.POST("/realtime/disconnect", h.Disconnect)

	admin := api.Group("/admin/realtime", adminMiddleware...)
	admin.GET("/status", h.Status)
	admin.POST("/clear", h.Clear)
}
