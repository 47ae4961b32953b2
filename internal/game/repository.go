package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenfehling/drum-circle-api/internal/models"
)

// Repository persists games in Postgres. Player-created games draw their
// codes from a sequence starting at 1; the open session holds the
// reserved code 0.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a game repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const gameColumns = "code, running, start_time, tempo, drum_kit, created_at, updated_at"

// EnsureSchema creates the games table and code sequence if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS game_codes START 1`,
		`CREATE TABLE IF NOT EXISTS games (
			code       BIGINT PRIMARY KEY DEFAULT nextval('game_codes'),
			running    BOOLEAN NOT NULL DEFAULT FALSE,
			start_time BIGINT,
			tempo      INT,
			drum_kit   TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure games schema: %w", err)
		}
	}
	return nil
}

// CreateGame inserts a new game with an auto-assigned code.
func (r *Repository) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO games (tempo, drum_kit) VALUES ($1, $2) RETURNING `+gameColumns,
		req.Tempo, req.DrumKit,
	)
	g, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	return g, nil
}

// CreateOpenGame inserts the open session at its reserved code, already
// running. A concurrent bootstrap wins harmlessly: the existing row is
// returned.
func (r *Repository) CreateOpenGame(ctx context.Context, tempo int, drumKit string, startTime int64) (*models.Game, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO games (code, running, start_time, tempo, drum_kit)
		 VALUES ($1, TRUE, $2, $3, $4)
		 ON CONFLICT (code) DO NOTHING`,
		models.OpenGameCode, startTime, tempo, drumKit,
	)
	if err != nil {
		return nil, fmt.Errorf("insert open game: %w", err)
	}
	return r.GetGame(ctx, models.OpenGameCode)
}

// GetGame fetches a game by code.
func (r *Repository) GetGame(ctx context.Context, code int64) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE code = $1`, code)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// ListGames fetches all games, oldest first.
func (r *Repository) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// UpdateSettings overwrites the fields present in req and leaves the
// rest untouched.
func (r *Repository) UpdateSettings(ctx context.Context, code int64, req UpdateSettingsRequest) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games
		 SET tempo = COALESCE($2, tempo),
		     drum_kit = COALESCE($3, drum_kit),
		     updated_at = now()
		 WHERE code = $1
		 RETURNING `+gameColumns,
		code, req.Tempo, req.DrumKit,
	)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update game settings: %w", err)
	}
	return g, nil
}

// StartGame flips the game to running with the given start time. The
// running guard keeps the transition one-way even under concurrent
// starts; the bool is false when another caller got there first.
func (r *Repository) StartGame(ctx context.Context, code int64, startTime int64) (*models.Game, bool, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games
		 SET running = TRUE, start_time = $2, updated_at = now()
		 WHERE code = $1 AND NOT running
		 RETURNING `+gameColumns,
		code, startTime,
	)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the game vanished or a concurrent start won; re-read to
		// tell the two apart.
		g, err := r.GetGame(ctx, code)
		if err != nil {
			return nil, false, err
		}
		return g, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("start game: %w", err)
	}
	return g, true, nil
}

// DeleteGame removes a game; players cascade.
func (r *Repository) DeleteGame(ctx context.Context, code int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM games WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(&g.Code, &g.Running, &g.StartTime, &g.Tempo, &g.DrumKitID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
