package fanout

import (
	"encoding/json"
	"fmt"

	"github.com/kenfehling/drum-circle-api/internal/models"
)

// Kind enumerates the realtime event kinds pushed to clients.
type Kind string

const (
	KindPlayerJoin    Kind = "PLAYER_JOIN"
	KindGameStarted   Kind = "GAME_STARTED"
	KindEffectReceive Kind = "EFFECT_RECEIVE"
)

// Event is the payload delivered on a game's channel. On the wire it is
// a single flat object: the payload fields plus an "event" key naming
// the kind.
type Event struct {
	Kind    Kind
	Payload any
}

// PlayerJoinPayload announces a newly admitted player.
type PlayerJoinPayload struct {
	Color   models.Color `json:"color"`
	Drum    string       `json:"drum"`
	DrumKit *string      `json:"drum_kit,omitempty"`
	Tempo   *int         `json:"tempo,omitempty"`
}

// GameStartedPayload carries the public settings of a started game.
type GameStartedPayload struct {
	Code      int64   `json:"code"`
	Tempo     *int    `json:"tempo,omitempty"`
	DrumKit   *string `json:"drum_kit,omitempty"`
	StartTime int64   `json:"start_time"`
}

// EffectPayload relays an ephemeral client-to-client effect signal.
type EffectPayload struct {
	Color  models.Color `json:"color"`
	Effect string       `json:"effect"`
}

// NewPlayerJoinEvent builds a PLAYER_JOIN event from an admitted player.
func NewPlayerJoinEvent(p *models.Player) Event {
	return Event{Kind: KindPlayerJoin, Payload: PlayerJoinPayload{
		Color:   p.Color,
		Drum:    p.Drum,
		DrumKit: p.DrumKitID,
		Tempo:   p.Tempo,
	}}
}

// NewGameStartedEvent builds a GAME_STARTED event from a running game.
func NewGameStartedEvent(g *models.Game) Event {
	var start int64
	if g.StartTime != nil {
		start = *g.StartTime
	}
	return Event{Kind: KindGameStarted, Payload: GameStartedPayload{
		Code:      g.Code,
		Tempo:     g.Tempo,
		DrumKit:   g.DrumKitID,
		StartTime: start,
	}}
}

// NewEffectEvent builds an EFFECT_RECEIVE event.
func NewEffectEvent(color models.Color, effect string) Event {
	return Event{Kind: KindEffectReceive, Payload: EffectPayload{
		Color:  color,
		Effect: effect,
	}}
}

// MarshalJSON flattens the payload fields and the event kind into one
// object.
func (e Event) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flatten event payload: %w", err)
	}
	kind, err := json.Marshal(e.Kind)
	if err != nil {
		return nil, err
	}
	fields["event"] = kind

	return json.Marshal(fields)
}
