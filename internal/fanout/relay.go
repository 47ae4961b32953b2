package fanout

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RelayConfig holds settings for the hosted push relay.
type RelayConfig struct {
	BaseURL  string        // e.g. https://api.fanout.io/realm
	Realm    string        // realm id, also the JWT issuer
	RealmKey string        // base64-encoded signing key
	Timeout  time.Duration // per-request timeout
	TokenTTL time.Duration // auth token lifetime
}

// DefaultRelayConfig returns relay settings with the hosted API defaults.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BaseURL:  "https://api.fanout.io/realm",
		Timeout:  10 * time.Second,
		TokenTTL: time.Hour,
	}
}

// RelayPublisher pushes events to a hosted fanout relay over HTTP,
// minting a short-lived HS256 token per send.
type RelayPublisher struct {
	config RelayConfig
	key    []byte
	client *http.Client
	clock  clockwork.Clock
}

// NewRelayPublisher creates a relay publisher. The realm key must be
// base64-encoded.
func NewRelayPublisher(cfg RelayConfig) (*RelayPublisher, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.RealmKey)
	if err != nil {
		return nil, fmt.Errorf("decode realm key: %w", err)
	}

	return &RelayPublisher{
		config: cfg,
		key:    key,
		client: &http.Client{Timeout: cfg.Timeout},
		clock:  clockwork.NewRealClock(),
	}, nil
}

// relayItem wraps an event the way the relay expects: a list of items,
// each tagged with the fanout-pubsub protocol format.
type relayItem struct {
	FPP Event `json:"fpp"`
}

type relayBody struct {
	Items []relayItem `json:"items"`
}

// Send publishes event on the game's channel. The relay's HTTP status is
// the delivery outcome; >= 300 is a failure.
func (p *RelayPublisher) Send(ctx context.Context, channel int64, event Event) Delivery {
	body, err := json.Marshal(relayBody{Items: []relayItem{{FPP: event}}})
	if err != nil {
		return Delivery{Err: fmt.Errorf("marshal relay body: %w", err)}
	}

	token, err := p.authToken()
	if err != nil {
		return Delivery{Err: fmt.Errorf("mint auth token: %w", err)}
	}

	url := fmt.Sprintf("%s/%s/publish/%d/", p.config.BaseURL, p.config.Realm, channel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Delivery{Err: fmt.Errorf("create relay request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Delivery{Err: fmt.Errorf("post to relay: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Warn().
			Int("status", resp.StatusCode).
			Int64("channel", channel).
			Str("response", string(respBody)).
			Msg("relay rejected event")
	}

	return Delivery{StatusCode: resp.StatusCode}
}

// authToken mints a short-lived bearer token for the realm.
func (p *RelayPublisher) authToken() (string, error) {
	now := p.clock.Now()
	claims := jwt.MapClaims{
		"iss": p.config.Realm,
		"exp": jwt.NewNumericDate(now.Add(p.config.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
}
