package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kenfehling/drum-circle-api/internal/fanout"
	"github.com/kenfehling/drum-circle-api/internal/game"
	"github.com/kenfehling/drum-circle-api/internal/player"
)

// Services holds the wired application layers.
type Services struct {
	Games   *game.App
	Players *player.App

	// Hub is set only for the local fan-out driver; it needs a Start
	// goroutine and a websocket route.
	Hub *fanout.Hub
}

func setupServices(ctx context.Context, pool *pgxpool.Pool, cfg Config) (*Services, error) {
	// Repository layer → app layer, publisher shared by both apps.
	gameRepo := game.NewRepository(pool)
	if err := gameRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	playerRepo := player.NewRepository(pool)
	if err := playerRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	publisher, hub, err := setupPublisher(cfg)
	if err != nil {
		return nil, err
	}

	gameApp := game.NewApp(gameRepo, publisher, game.Options{
		StrictStart:     cfg.Game.StrictStart,
		NotifyBeforeAck: cfg.Fanout.NotifyBeforeAck,
	})
	playerApp := player.NewApp(playerRepo, gameApp, publisher, player.Options{
		MaxPlayers:      cfg.Game.MaxPlayers,
		NotifyBeforeAck: cfg.Fanout.NotifyBeforeAck,
	})

	return &Services{
		Games:   gameApp,
		Players: playerApp,
		Hub:     hub,
	}, nil
}

func setupPublisher(cfg Config) (fanout.Publisher, *fanout.Hub, error) {
	switch cfg.Fanout.Driver {
	case "local":
		hub := fanout.NewHub(fanout.DefaultHubConfig())
		return hub, hub, nil

	case "relay":
		relayCfg := fanout.DefaultRelayConfig()
		if cfg.Fanout.Relay.BaseURL != "" {
			relayCfg.BaseURL = cfg.Fanout.Relay.BaseURL
		}
		relayCfg.Realm = cfg.Fanout.Relay.Realm
		relayCfg.RealmKey = os.Getenv("FANOUT_REALM_KEY")
		if relayCfg.Realm == "" || relayCfg.RealmKey == "" {
			return nil, nil, fmt.Errorf("relay driver requires FANOUT_REALM and FANOUT_REALM_KEY")
		}
		pub, err := fanout.NewRelayPublisher(relayCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create relay publisher: %w", err)
		}
		return pub, nil, nil

	case "nats":
		natsCfg := fanout.DefaultNATSConfig()
		if cfg.Fanout.NATS.URL != "" {
			natsCfg.URL = cfg.Fanout.NATS.URL
		}
		pub, err := fanout.NewNATSPublisher(natsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("create NATS publisher: %w", err)
		}
		return pub, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown fanout driver: %s", cfg.Fanout.Driver)
	}
}
