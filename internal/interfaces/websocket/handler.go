package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

// WebSocketHandler serves the same push channel over WebSocket
type WebSocketHandler struct {
	hub      *hub.Hub
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler instance
func NewWebSocketHandler(hubInstance *hub.Hub, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Same policy as the CORS middleware: any origin.
				return true
			},
		},
	}
}

// Connect upgrades the request and admits it as a push stream. Frames sent by the
// client are ignored.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	clientID := c.Query("clientId")
	if err := hub.ValidateClientID(clientID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.hub.IsRunning() {
		h.logger.Error("Hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	stream := hub.NewWebSocketStream(conn)
	client, err := h.hub.Admit(c.Request.Context(), clientID, stream)
	if err != nil {
		_ = stream.Close()
		h.logger.WithError(err).Warn("WebSocket admission rejected")
		return
	}

	log := h.logger.WithField("client_id", client.ID())
	log.Debugf("WebSocket stream open (resumed: %v)", client.Resumed())

	<-stream.Done()
	h.hub.Abort(client)
	log.Debug("WebSocket stream closed")
}
