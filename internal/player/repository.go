package player

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenfehling/drum-circle-api/internal/models"
)

// Repository persists players in Postgres. Players are write-once: no
// update path exists.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a player repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the players table if missing. The games table
// must exist first.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id         UUID PRIMARY KEY,
			game_code  BIGINT NOT NULL REFERENCES games(code) ON DELETE CASCADE,
			color      TEXT NOT NULL,
			drum       TEXT NOT NULL,
			drum_kit   TEXT,
			tempo      INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS players_game_code_idx ON players (game_code)`,
	}
	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure players schema: %w", err)
		}
	}
	return nil
}

// CreatePlayer inserts a player.
func (r *Repository) CreatePlayer(ctx context.Context, p *models.Player) (*models.Player, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO players (id, game_code, color, drum, drum_kit, tempo)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, game_code, color, drum, drum_kit, tempo, created_at`,
		p.ID, p.GameCode, p.Color, p.Drum, p.DrumKitID, p.Tempo,
	)

	var out models.Player
	if err := row.Scan(&out.ID, &out.GameCode, &out.Color, &out.Drum, &out.DrumKitID, &out.Tempo, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}
	return &out, nil
}

// CountPlayers returns the number of players in a game.
func (r *Repository) CountPlayers(ctx context.Context, gameCode int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM players WHERE game_code = $1`, gameCode).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}

// ListPlayers returns a game's players in join order.
func (r *Repository) ListPlayers(ctx context.Context, gameCode int64) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_code, color, drum, drum_kit, tempo, created_at
		 FROM players WHERE game_code = $1 ORDER BY created_at`, gameCode)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.GameCode, &p.Color, &p.Drum, &p.DrumKitID, &p.Tempo, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ListPlayerColors returns the colors in use in a game, in join order.
func (r *Repository) ListPlayerColors(ctx context.Context, gameCode int64) ([]models.Color, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT color FROM players WHERE game_code = $1 ORDER BY created_at`, gameCode)
	if err != nil {
		return nil, fmt.Errorf("list player colors: %w", err)
	}
	defer rows.Close()

	var colors []models.Color
	for rows.Next() {
		var c models.Color
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		colors = append(colors, c)
	}
	return colors, rows.Err()
}

// ListPlayerDrums returns the distinct drums in use in a game.
func (r *Repository) ListPlayerDrums(ctx context.Context, gameCode int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT drum FROM players WHERE game_code = $1`, gameCode)
	if err != nil {
		return nil, fmt.Errorf("list player drums: %w", err)
	}
	defer rows.Close()

	var drums []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan drum: %w", err)
		}
		drums = append(drums, d)
	}
	return drums, rows.Err()
}
