package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-scoreboard-sse/internal/domain"
)

func newGame(t *testing.T, id string, createdAt time.Time) *domain.Game {
	t.Helper()
	g, err := domain.NewGame(id, "game "+id, []string{"ann", "bob"}, createdAt)
	require.NoError(t, err)
	return g
}

func TestGameRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewGameRepository()
	g := newGame(t, "g1", time.Now())

	require.NoError(t, repo.Create(ctx, g))
	assert.ErrorIs(t, repo.Create(ctx, g), domain.ErrInvalidGame)

	got, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, g, got)

	// Stored games are isolated from the caller's copy.
	got.Players[0].Score = 42
	again, err := repo.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Players[0].Score)

	require.NoError(t, got.RecordScore("ann", 5, time.Now()))
	require.NoError(t, repo.Update(ctx, got))
	again, err = repo.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 47, again.Players[0].Score)

	require.NoError(t, repo.Delete(ctx, "g1"))
	assert.ErrorIs(t, repo.Delete(ctx, "g1"), domain.ErrGameNotFound)
	_, err = repo.Get(ctx, "g1")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
	assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrGameNotFound)
}

func TestGameRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewGameRepository()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, newGame(t, "old", base)))
	require.NoError(t, repo.Create(ctx, newGame(t, "new", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newGame(t, "mid", base.Add(time.Minute))))

	games, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, "new", games[0].ID)
	assert.Equal(t, "mid", games[1].ID)
	assert.Equal(t, "old", games[2].ID)
}
