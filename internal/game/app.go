package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kenfehling/drum-circle-api/internal/beatsync"
	"github.com/kenfehling/drum-circle-api/internal/drumkit"
	"github.com/kenfehling/drum-circle-api/internal/fanout"
	"github.com/kenfehling/drum-circle-api/internal/models"
)

// Cycle structure shared by every game: four beats to the measure, one
// measure per synchronization cycle.
const (
	BeatsPerMeasure = 4
	MeasuresInCycle = 1

	// openGameTempo gives the open session a 1000ms beat.
	openGameTempo = 60
)

// GameRepository defines what the game app layer needs from persistence.
type GameRepository interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error)
	CreateOpenGame(ctx context.Context, tempo int, drumKit string, startTime int64) (*models.Game, error)
	GetGame(ctx context.Context, code int64) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)
	UpdateSettings(ctx context.Context, code int64, req UpdateSettingsRequest) (*models.Game, error)

	// StartGame flips the game to running. The bool reports whether this
	// call performed the transition; false means a concurrent start won.
	StartGame(ctx context.Context, code int64, startTime int64) (*models.Game, bool, error)
	DeleteGame(ctx context.Context, code int64) error
}

// Options tune app behavior per deployment.
type Options struct {
	// Clock is the time authority for start-time stamping. Defaults to
	// the real clock; tests inject a fake.
	Clock clockwork.Clock

	// StrictStart makes a second StartGame an error instead of an
	// idempotent no-op.
	StrictStart bool

	// NotifyBeforeAck sends fan-out events synchronously and surfaces
	// the delivery outcome to the caller. When false the mutation is
	// acknowledged first and delivery runs in the background.
	NotifyBeforeAck bool
}

// App handles game lifecycle business logic.
type App struct {
	repo      GameRepository
	publisher fanout.Publisher
	opts      Options
}

// NewApp creates a new game App.
func NewApp(repo GameRepository, publisher fanout.Publisher, opts Options) *App {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &App{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
	}
}

// CreateGame creates a game in the created state. Ordinary games are
// never auto-started.
func (a *App) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Game, error) {
	if err := validateSettings(req.Tempo, req.DrumKit); err != nil {
		return nil, err
	}

	g, err := a.repo.CreateGame(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	log.Info().Int64("code", g.Code).Msg("created game")
	return g, nil
}

// EnsureOpenGame makes sure the open practice session exists and is
// running. Safe to call from every process at startup.
func (a *App) EnsureOpenGame(ctx context.Context) (*models.Game, error) {
	g, err := a.repo.GetGame(ctx, models.OpenGameCode)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("look up open game: %w", err)
	}

	beat := beatsync.BeatDuration(openGameTempo)
	start := beatsync.NextCycleTime(a.now(), 0, beat, BeatsPerMeasure, MeasuresInCycle)

	g, err = a.repo.CreateOpenGame(ctx, openGameTempo, drumkit.Default().ID, start)
	if err != nil {
		return nil, fmt.Errorf("create open game: %w", err)
	}

	log.Info().Int64("start_time", start).Msg("bootstrapped open game")
	return g, nil
}

// GetGame retrieves a game by code.
func (a *App) GetGame(ctx context.Context, code int64) (*models.Game, error) {
	return a.repo.GetGame(ctx, code)
}

// ListGames retrieves all games.
func (a *App) ListGames(ctx context.Context) ([]models.Game, error) {
	return a.repo.ListGames(ctx)
}

// UpdateSettings applies a partial settings update. Settings freeze once
// the game is running.
func (a *App) UpdateSettings(ctx context.Context, code int64, req UpdateSettingsRequest) (*models.Game, error) {
	if err := validateSettings(req.Tempo, req.DrumKit); err != nil {
		return nil, err
	}

	current, err := a.repo.GetGame(ctx, code)
	if err != nil {
		return nil, err
	}
	if current.Running {
		return nil, ErrGameRunning
	}
	if req.IsEmpty() {
		return current, nil
	}

	g, err := a.repo.UpdateSettings(ctx, code, req)
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	log.Info().
		Int64("code", code).
		Bool("tempo", req.Tempo != nil).
		Bool("drum_kit", req.DrumKit != nil).
		Msg("updated game settings")
	return g, nil
}

// StartGame transitions a game to running, stamping it with the next
// cycle-aligned start time, and fans out GAME_STARTED. Starting an
// already-running game is an idempotent no-op (no second notification)
// unless StrictStart is set.
func (a *App) StartGame(ctx context.Context, code int64) (*models.Game, *fanout.Delivery, error) {
	current, err := a.repo.GetGame(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if current.Running {
		if a.opts.StrictStart {
			return nil, nil, ErrAlreadyRunning
		}
		return current, nil, nil
	}
	if current.Tempo == nil {
		return nil, nil, ErrTempoRequired
	}

	beat := beatsync.BeatDuration(*current.Tempo)
	start := beatsync.NextCycleTime(a.now(), 0, beat, BeatsPerMeasure, MeasuresInCycle)

	g, started, err := a.repo.StartGame(ctx, code, start)
	if err != nil {
		return nil, nil, fmt.Errorf("start game: %w", err)
	}
	if !started {
		// A concurrent start won between the read and the write; the
		// winner already sent GAME_STARTED.
		if a.opts.StrictStart {
			return nil, nil, ErrAlreadyRunning
		}
		return g, nil, nil
	}

	log.Info().
		Int64("code", code).
		Int("tempo", *g.Tempo).
		Int64("start_time", start).
		Msg("started game")

	delivery := a.notify(ctx, code, fanout.NewGameStartedEvent(g))
	return g, delivery, nil
}

// DeleteGame removes a game and its players.
func (a *App) DeleteGame(ctx context.Context, code int64) error {
	if err := a.repo.DeleteGame(ctx, code); err != nil {
		return err
	}
	log.Info().Int64("code", code).Msg("deleted game")
	return nil
}

// SendEffect relays an ephemeral effect signal to the game's channel.
// Nothing is persisted; the game only has to exist.
func (a *App) SendEffect(ctx context.Context, code int64, color models.Color, effect string) (*fanout.Delivery, error) {
	if !models.ValidColor(color) {
		return nil, ErrInvalidColor
	}
	if _, err := a.repo.GetGame(ctx, code); err != nil {
		return nil, err
	}

	delivery := a.notify(ctx, code, fanout.NewEffectEvent(color, effect))
	return delivery, nil
}

func (a *App) notify(ctx context.Context, channel int64, event fanout.Event) *fanout.Delivery {
	return fanout.Notify(ctx, a.publisher, channel, event, a.opts.NotifyBeforeAck)
}

func (a *App) now() int64 {
	return a.opts.Clock.Now().UnixMilli()
}

// validateSettings rejects malformed tempo or unknown kit ids before any
// mutation. The tempo must leave a strictly positive beat duration in
// whole milliseconds or the cycle arithmetic has no grid to land on.
func validateSettings(tempo *int, kit *string) error {
	if tempo != nil && (*tempo <= 0 || beatsync.BeatDuration(*tempo) <= 0) {
		return ErrInvalidTempo
	}
	if kit != nil {
		if _, ok := drumkit.Lookup(*kit); !ok {
			return ErrUnknownDrumKit
		}
	}
	return nil
}
