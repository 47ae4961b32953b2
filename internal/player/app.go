package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kenfehling/drum-circle-api/internal/drumkit"
	"github.com/kenfehling/drum-circle-api/internal/fanout"
	"github.com/kenfehling/drum-circle-api/internal/models"
)

// DefaultMaxPlayers caps ordinary games at one player per palette color.
var DefaultMaxPlayers = len(models.PlayerColors)

// PlayerRepository defines what the player app layer needs from
// persistence.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, p *models.Player) (*models.Player, error)
	CountPlayers(ctx context.Context, gameCode int64) (int, error)
	ListPlayers(ctx context.Context, gameCode int64) ([]models.Player, error)
	ListPlayerColors(ctx context.Context, gameCode int64) ([]models.Color, error)
	ListPlayerDrums(ctx context.Context, gameCode int64) ([]string, error)
}

// GameGetter is the slice of the game app the join flow needs.
type GameGetter interface {
	GetGame(ctx context.Context, code int64) (*models.Game, error)
}

// Options tune app behavior per deployment.
type Options struct {
	// MaxPlayers caps ordinary games. The open session is never capped.
	MaxPlayers int

	// NotifyBeforeAck mirrors the game app's fan-out ordering policy.
	NotifyBeforeAck bool
}

// App handles player admission and assignment.
type App struct {
	repo      PlayerRepository
	games     GameGetter
	publisher fanout.Publisher
	opts      Options

	// joinMu serializes admission per game so the capacity check, the
	// color/drum assignment and the insert see a consistent player set.
	// Only holds within this process; a multi-node deployment still has
	// the count-then-insert race.
	joinMu sync.Mutex
	joins  map[int64]*sync.Mutex
}

// NewApp creates a new player App.
func NewApp(repo PlayerRepository, games GameGetter, publisher fanout.Publisher, opts Options) *App {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	return &App{
		repo:      repo,
		games:     games,
		publisher: publisher,
		opts:      opts,
		joins:     make(map[int64]*sync.Mutex),
	}
}

// CanAdmit reports whether the game accepts another player. The open
// session is unmetered; everything else is capped at MaxPlayers.
func (a *App) CanAdmit(g *models.Game, currentCount int) bool {
	if g.IsOpen() {
		return true
	}
	return currentCount < a.opts.MaxPlayers
}

// JoinGame admits a player into the game: capacity check, color and drum
// assignment, persist, then a PLAYER_JOIN fan-out on the game's channel.
func (a *App) JoinGame(ctx context.Context, gameCode int64) (*models.Player, *fanout.Delivery, error) {
	g, err := a.games.GetGame(ctx, gameCode)
	if err != nil {
		return nil, nil, err
	}

	mu := a.gameLock(gameCode)
	mu.Lock()
	p, err := a.admit(ctx, g)
	mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int64("game_code", gameCode).
		Str("color", string(p.Color)).
		Str("drum", p.Drum).
		Msg("player joined")

	delivery := fanout.Notify(ctx, a.publisher, gameCode, fanout.NewPlayerJoinEvent(p), a.opts.NotifyBeforeAck)
	return p, delivery, nil
}

// admit runs the capacity check, assignment and insert under the game's
// join lock.
func (a *App) admit(ctx context.Context, g *models.Game) (*models.Player, error) {
	count, err := a.repo.CountPlayers(ctx, g.Code)
	if err != nil {
		return nil, fmt.Errorf("count players: %w", err)
	}
	if !a.CanAdmit(g, count) {
		return nil, ErrGameFull
	}

	usedColors, err := a.repo.ListPlayerColors(ctx, g.Code)
	if err != nil {
		return nil, fmt.Errorf("list used colors: %w", err)
	}
	usedDrums, err := a.repo.ListPlayerDrums(ctx, g.Code)
	if err != nil {
		return nil, fmt.Errorf("list used drums: %w", err)
	}

	kitID := drumkit.Default().ID
	if g.DrumKitID != nil {
		kitID = *g.DrumKitID
	}

	p := &models.Player{
		ID:        uuid.New(),
		GameCode:  g.Code,
		Color:     NextColor(usedColors),
		Drum:      SelectDrum(usedDrums, drumkit.DrumsInKit(kitID)),
		DrumKitID: &kitID,
		Tempo:     g.Tempo,
	}

	created, err := a.repo.CreatePlayer(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return created, nil
}

// ListPlayers retrieves the players of a game.
func (a *App) ListPlayers(ctx context.Context, gameCode int64) ([]models.Player, error) {
	if _, err := a.games.GetGame(ctx, gameCode); err != nil {
		return nil, err
	}
	return a.repo.ListPlayers(ctx, gameCode)
}

func (a *App) gameLock(gameCode int64) *sync.Mutex {
	a.joinMu.Lock()
	defer a.joinMu.Unlock()

	mu, ok := a.joins[gameCode]
	if !ok {
		mu = &sync.Mutex{}
		a.joins[gameCode] = mu
	}
	return mu
}
