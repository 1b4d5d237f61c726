package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGame(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	g, err := NewGame("g1", "  Friday hearts ", []string{"ann", "bob"}, now)
	require.NoError(t, err)
	assert.Equal(t, "Friday hearts", g.Name)
	assert.Equal(t, GameStatusActive, g.Status)
	assert.Equal(t, []Player{{Name: "ann"}, {Name: "bob"}}, g.Players)
	assert.Equal(t, now, g.CreatedAt)

	tests := []struct {
		name    string
		game    string
		players []string
	}{
		{"empty name", " ", []string{"ann"}},
		{"no players", "x", nil},
		{"blank player", "x", []string{"ann", ""}},
		{"duplicate player", "x", []string{"ann", "ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGame("g", tt.game, tt.players, now)
			assert.ErrorIs(t, err, ErrInvalidGame)
		})
	}
}

func TestGame_RecordScore(t *testing.T) {
	now := time.Now()
	g, err := NewGame("g1", "rummy", []string{"ann", "bob"}, now)
	require.NoError(t, err)

	later := now.Add(time.Minute)
	require.NoError(t, g.RecordScore("bob", 15, later))
	require.NoError(t, g.RecordScore("bob", -5, later))
	assert.Equal(t, 10, g.Players[1].Score)
	assert.Equal(t, later, g.UpdatedAt)

	assert.ErrorIs(t, g.RecordScore("carol", 1, later), ErrInvalidGame)

	require.NoError(t, g.SetStatus(GameStatusFinished, later))
	assert.ErrorIs(t, g.RecordScore("ann", 1, later), ErrInvalidGame)
}

func TestGame_SetStatus(t *testing.T) {
	g, err := NewGame("g1", "rummy", []string{"ann"}, time.Now())
	require.NoError(t, err)

	assert.ErrorIs(t, g.SetStatus("paused", time.Now()), ErrInvalidGame)
	require.NoError(t, g.SetStatus(GameStatusFinished, time.Now()))
	require.NoError(t, g.SetStatus(GameStatusFinished, time.Now()))
	assert.ErrorIs(t, g.SetStatus(GameStatusActive, time.Now()), ErrInvalidGame)
}

func TestGame_Clone(t *testing.T) {
	g, err := NewGame("g1", "rummy", []string{"ann"}, time.Now())
	require.NoError(t, err)

	c := g.Clone()
	c.Players[0].Score = 99
	assert.Equal(t, 0, g.Players[0].Score)
}
