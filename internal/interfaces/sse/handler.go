package sse

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	hub    *hub.Hub
	logger logger.Logger
}

// NewServerSentEventHandler creates a new SSE handler
func NewServerSentEventHandler(hubInstance *hub.Hub, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:    hubInstance,
		logger: logger.WithField("handler", "sse"),
	}
}

// Connect admits the request as a push stream and holds it open until the client
// goes away or the hub evicts it. An optional clientId query parameter resumes a
// previous identity.
func (h *ServerSentEventHandler) Connect(c *gin.Context) {
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

	stream := hub.NewSSEStream(c.Request.Context(), c.Writer)
	client, err := h.hub.Admit(c.Request.Context(), clientID, stream)
	if err != nil {
		// A timed out acknowledgement may still be writing.
		stream.Drain()
		h.rejectAdmission(c, err)
		return
	}

	log := h.logger.WithField("client_id", client.ID())
	log.Debugf("SSE stream open (resumed: %v)", client.Resumed())

	<-stream.Done()
	h.hub.Abort(client)

	// The writer belongs to gin once we return; wait out any write still in flight.
	// Abort closed the stream, which moved the write deadline to now.
	stream.Drain()
	log.Debug("SSE stream closed")
}

func (h *ServerSentEventHandler) rejectAdmission(c *gin.Context, err error) {
	if errors.Is(err, hub.ErrAckFailed) {
		// The peer is already gone; nothing left to write to.
		h.logger.WithError(err).Info("SSE admission abandoned")
		return
	}

	// The stream set event-stream headers; answer with plain JSON instead.
	c.Writer.Header().Del("Content-Type")
	c.Writer.Header().Del("X-Accel-Buffering")

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hub.ErrHubNotRunning):
		status = http.StatusServiceUnavailable
	case errors.Is(err, hub.ErrInvalidClientID):
		status = http.StatusBadRequest
	}
	h.logger.WithError(err).Warn("SSE admission rejected")
	c.JSON(status, gin.H{"error": err.Error()})
}
