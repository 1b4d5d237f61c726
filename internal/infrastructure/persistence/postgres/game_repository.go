package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"go-scoreboard-sse/internal/domain"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	players    JSONB NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// Open connects to PostgreSQL through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// GameRepository stores games in a single table, players as JSONB.
type GameRepository struct {
	db *sql.DB
}

var _ domain.GameRepository = (*GameRepository)(nil)

// NewGameRepository creates a repository backed by db
func NewGameRepository(db *sql.DB) *GameRepository {
	return &GameRepository{db: db}
}

// Migrate creates the games table if it does not exist.
func (r *GameRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate games table: %w", err)
	}
	return nil
}

func (r *GameRepository) Create(ctx context.Context, game *domain.Game) error {
	players, err := json.Marshal(game.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO games (id, name, players, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, game.ID, game.Name, players, string(game.Status), game.CreatedAt, game.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: game %s already exists", domain.ErrInvalidGame, game.ID)
		}
		return fmt.Errorf("failed to insert game %s: %w", game.ID, err)
	}
	return nil
}

func (r *GameRepository) Get(ctx context.Context, id string) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, players, status, created_at, updated_at
		FROM games
		WHERE id = $1
	`, id)
	g, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}
	return g, nil
}

func (r *GameRepository) List(ctx context.Context) ([]*domain.Game, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, players, status, created_at, updated_at
		FROM games
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var out []*domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GameRepository) Update(ctx context.Context, game *domain.Game) error {
	players, err := json.Marshal(game.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE games
		SET name = $2, players = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, game.ID, game.Name, players, string(game.Status), game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update game %s: %w", game.ID, err)
	}
	return expectOneRow(res)
}

func (r *GameRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*domain.Game, error) {
	var (
		g       domain.Game
		players []byte
		status  string
	)
	if err := s.Scan(&g.ID, &g.Name, &players, &status, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(players, &g.Players); err != nil {
		return nil, fmt.Errorf("corrupt players column: %w", err)
	}
	g.Status = domain.GameStatus(status)
	return &g, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}
