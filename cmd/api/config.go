package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration, loaded from an optional yaml
// file and overridable through environment variables.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Game struct {
		MaxPlayers  int  `yaml:"max_players"`
		StrictStart bool `yaml:"strict_start"`
	} `yaml:"game"`

	Fanout struct {
		// Driver selects the fan-out transport: "local" (in-process
		// websocket hub), "relay" (hosted push relay) or "nats".
		Driver string `yaml:"driver"`

		// NotifyBeforeAck makes mutations deliver their event before the
		// HTTP response is sent, surfacing delivery failures to clients.
		NotifyBeforeAck bool `yaml:"notify_before_ack"`

		Relay struct {
			BaseURL string `yaml:"base_url"`
			Realm   string `yaml:"realm"`
		} `yaml:"relay"`

		NATS struct {
			URL string `yaml:"url"`
		} `yaml:"nats"`
	} `yaml:"fanout"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Game.MaxPlayers = 6
	cfg.Fanout.Driver = "local"
	return cfg
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment overrides
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Game.MaxPlayers = getEnvAsInt("MAX_PLAYERS", cfg.Game.MaxPlayers)
	cfg.Fanout.Driver = getEnv("FANOUT_DRIVER", cfg.Fanout.Driver)
	cfg.Fanout.Relay.Realm = getEnv("FANOUT_REALM", cfg.Fanout.Relay.Realm)
	cfg.Fanout.NATS.URL = getEnv("NATS_URL", cfg.Fanout.NATS.URL)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
