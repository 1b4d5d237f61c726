package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-scoreboard-sse/internal/domain"
	"go-scoreboard-sse/internal/infrastructure/logger"
	"go-scoreboard-sse/internal/port/inbound"
	"go-scoreboard-sse/internal/port/outbound"
)

type GameApplicationService struct {
	repo      domain.GameRepository
	publisher outbound.EventPublisher
	clock     clockwork.Clock
	logger    logger.Logger

	// writeMu serializes read-modify-write cycles on games.
	writeMu sync.Mutex
}

var _ inbound.GameUseCase = (*GameApplicationService)(nil)

// NewGameApplicationService creates a new GameApplicationService instance
func NewGameApplicationService(
	repo domain.GameRepository,
	publisher outbound.EventPublisher,
	clock clockwork.Clock,
	logger logger.Logger,
) *GameApplicationService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GameApplicationService{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		logger:    logger.WithField("service", "game"),
	}
}

// CreateGame stores a new game and announces it
func (s *GameApplicationService) CreateGame(ctx context.Context, cmd inbound.CreateGameCommand) (*domain.Game, error) {
	game, err := domain.NewGame(uuid.NewString(), cmd.Name, cmd.Players, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.logger.WithField("game_id", game.ID).Infof("Game %q created with %d players", game.Name, len(game.Players))
	s.notify(outbound.GameCreated, game)
	return game, nil
}

// ListGames returns every game, newest first
func (s *GameApplicationService) ListGames(ctx context.Context) ([]*domain.Game, error) {
	return s.repo.List(ctx)
}

// GetGame returns the game with the given id
func (s *GameApplicationService) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	return s.repo.Get(ctx, id)
}

// RecordScore adds points to a player and announces the update
func (s *GameApplicationService) RecordScore(ctx context.Context, id string, cmd inbound.RecordScoreCommand) (*domain.Game, error) {
	return s.update(ctx, id, func(g *domain.Game) error {
		return g.RecordScore(cmd.Player, cmd.Points, s.clock.Now())
	})
}

// UpdateStatus changes the game status and announces the update
func (s *GameApplicationService) UpdateStatus(ctx context.Context, id string, cmd inbound.UpdateStatusCommand) (*domain.Game, error) {
	return s.update(ctx, id, func(g *domain.Game) error {
		return g.SetStatus(cmd.Status, s.clock.Now())
	})
}

// DeleteGame removes the game and announces the deletion
func (s *GameApplicationService) DeleteGame(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("game_id", id).Info("Game deleted")
	s.publisher.Notify(outbound.GameDeleted, outbound.GameEventPayload{
		GameID:    id,
		Timestamp: s.clock.Now(),
	})
	return nil
}

func (s *GameApplicationService) update(ctx context.Context, id string, mutate func(*domain.Game) error) (*domain.Game, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	game, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(game); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	s.notify(outbound.GameUpdated, game)
	return game, nil
}

// notify runs after the write has been stored; delivery is fire-and-forget.
func (s *GameApplicationService) notify(kind string, game *domain.Game) {
	s.publisher.Notify(kind, outbound.GameEventPayload{
		GameID:    game.ID,
		Game:      game.Clone(),
		Timestamp: s.clock.Now(),
	})
}
