package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrInvalidGame  = errors.New("invalid game")
)

type GameStatus string

const (
	GameStatusActive   GameStatus = "active"
	GameStatusFinished GameStatus = "finished"
)

func (s GameStatus) Valid() bool {
	return s == GameStatusActive || s == GameStatusFinished
}

// Player is one seat at the table and its running score.
type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Game is the shared resource whose changes are pushed to every connected client.
type Game struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Players   []Player   `json:"players"`
	Status    GameStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewGame validates the input and builds an active game with zeroed scores.
func NewGame(id, name string, players []string, now time.Time) (*Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidGame)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: at least one player is required", ErrInvalidGame)
	}

	seen := make(map[string]bool, len(players))
	g := &Game{
		ID:        id,
		Name:      name,
		Players:   make([]Player, 0, len(players)),
		Status:    GameStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, p := range players {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("%w: player name is required", ErrInvalidGame)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: duplicate player %q", ErrInvalidGame, p)
		}
		seen[p] = true
		g.Players = append(g.Players, Player{Name: p})
	}
	return g, nil
}

// RecordScore adds points (possibly negative) to a player of an active game.
func (g *Game) RecordScore(player string, points int, now time.Time) error {
	if g.Status != GameStatusActive {
		return fmt.Errorf("%w: game %s is %s", ErrInvalidGame, g.ID, g.Status)
	}
	for i := range g.Players {
		if g.Players[i].Name == player {
			g.Players[i].Score += points
			g.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: unknown player %q", ErrInvalidGame, player)
}

// SetStatus moves the game to status. Finished games cannot be reopened.
func (g *Game) SetStatus(status GameStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidGame, status)
	}
	if g.Status == GameStatusFinished && status != GameStatusFinished {
		return fmt.Errorf("%w: game %s is already finished", ErrInvalidGame, g.ID)
	}
	if g.Status != status {
		g.Status = status
		g.UpdatedAt = now
	}
	return nil
}

// Clone returns a deep copy, so stored games never alias caller state.
func (g *Game) Clone() *Game {
	c := *g
	c.Players = append([]Player(nil), g.Players...)
	return &c
}

// GameRepository stores games. Implementations return ErrGameNotFound for unknown ids.
type GameRepository interface {
	Create(ctx context.Context, game *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	List(ctx context.Context) ([]*Game, error)
	Update(ctx context.Context, game *Game) error
	Delete(ctx context.Context, id string) error
}
