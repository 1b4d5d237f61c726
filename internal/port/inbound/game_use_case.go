package inbound

import (
	"context"

	"go-scoreboard-sse/internal/domain"
)

type CreateGameCommand struct {
	Name    string   `json:"name" binding:"required"`
	Players []string `json:"players" binding:"required,min=1"`
}

type RecordScoreCommand struct {
	Player string `json:"player" binding:"required"`
	Points int    `json:"points"`
}

type UpdateStatusCommand struct {
	Status domain.GameStatus `json:"status" binding:"required"`
}

// GameUseCase is what the REST layer may do with games. Every successful write
// notifies connected clients.
type GameUseCase interface {
	CreateGame(ctx context.Context, cmd CreateGameCommand) (*domain.Game, error)
	ListGames(ctx context.Context) ([]*domain.Game, error)
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	RecordScore(ctx context.Context, id string, cmd RecordScoreCommand) (*domain.Game, error)
	UpdateStatus(ctx context.Context, id string, cmd UpdateStatusCommand) (*domain.Game, error)
	DeleteGame(ctx context.Context, id string) error
}
