package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-scoreboard-sse/internal/domain"
)

// GameRepository keeps games in process memory. It is the default store and the one
// used by tests.
type GameRepository struct {
	mu    sync.RWMutex
	games map[string]*domain.Game
}

var _ domain.GameRepository = (*GameRepository)(nil)

// NewGameRepository creates an empty in-memory repository
func NewGameRepository() *GameRepository {
	return &GameRepository{games: make(map[string]*domain.Game)}
}

func (r *GameRepository) Create(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.ID]; ok {
		return fmt.Errorf("%w: game %s already exists", domain.ErrInvalidGame, game.ID)
	}
	r.games[game.ID] = game.Clone()
	return nil
}

func (r *GameRepository) Get(_ context.Context, id string) (*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return g.Clone(), nil
}

// List returns games newest first.
func (r *GameRepository) List(_ context.Context) ([]*domain.Game, error) {
	r.mu.RLock()
	out := make([]*domain.Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *GameRepository) Update(_ context.Context, game *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.ID]; !ok {
		return domain.ErrGameNotFound
	}
	r.games[game.ID] = game.Clone()
	return nil
}

func (r *GameRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return domain.ErrGameNotFound
	}
	delete(r.games, id)
	return nil
}
