package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-scoreboard-sse/internal/domain"
	"go-scoreboard-sse/internal/infrastructure/logger"
	"go-scoreboard-sse/internal/port/inbound"
)

type GameHandler struct {
	games  inbound.GameUseCase
	logger logger.Logger
}

// NewGameHandler creates a new GameHandler instance
func NewGameHandler(games inbound.GameUseCase, logger logger.Logger) *GameHandler {
	return &GameHandler{
		games:  games,
		logger: logger.WithField("handler", "game"),
	}
}

// Register mounts the /games routes on rg
func (h *GameHandler) Register(rg *gin.RouterGroup) {
	games := rg.Group("/games")
	games.POST("", h.CreateGame)
	games.GET("", h.ListGames)
	games.GET("/:gameId", h.GetGame)
	games.POST("/:gameId/scores", h.RecordScore)
	games.PUT("/:gameId/status", h.UpdateStatus)
	games.DELETE("/:gameId", h.DeleteGame)
}

// CreateGame handles POST /games
func (h *GameHandler) CreateGame(c *gin.Context) {
	var cmd inbound.CreateGameCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game format"})
		return
	}

	game, err := h.games.CreateGame(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, game)
}

// ListGames handles GET /games
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.games.ListGames(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if games == nil {
		games = []*domain.Game{}
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// GetGame handles GET /games/:gameId
func (h *GameHandler) GetGame(c *gin.Context) {
	game, err := h.games.GetGame(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// RecordScore handles POST /games/:gameId/scores
func (h *GameHandler) RecordScore(c *gin.Context) {
	var cmd inbound.RecordScoreCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid score format"})
		return
	}

	game, err := h.games.RecordScore(c.Request.Context(), c.Param("gameId"), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// UpdateStatus handles PUT /games/:gameId/status
func (h *GameHandler) UpdateStatus(c *gin.Context) {
	var cmd inbound.UpdateStatusCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status format"})
		return
	}

	game, err := h.games.UpdateStatus(c.Request.Context(), c.Param("gameId"), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// DeleteGame handles DELETE /games/:gameId
func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.games.DeleteGame(c.Request.Context(), c.Param("gameId")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GameHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidGame):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("Game request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
