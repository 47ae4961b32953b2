package models

import (
	"time"

	"github.com/google/uuid"
)

// Color identifies a player's slot in the fixed palette.
type Color string

// PlayerColors is the ordered palette colors are assigned from. Join
// order determines the color: the i-th joiner gets PlayerColors[i mod n].
var PlayerColors = []Color{
	"red",
	"orange",
	"yellow",
	"green",
	"blue",
	"purple",
}

// ColorAt returns the palette color for a 0-indexed join position.
func ColorAt(i int) Color {
	return PlayerColors[i%len(PlayerColors)]
}

// ValidColor reports whether c is one of the palette colors.
func ValidColor(c Color) bool {
	for _, pc := range PlayerColors {
		if pc == c {
			return true
		}
	}
	return false
}

// Player represents one participant in a Game. Players are immutable
// after creation.
type Player struct {
	ID        uuid.UUID `json:"id"`
	GameCode  int64     `json:"game_code"`
	Color     Color     `json:"color"`
	Drum      string    `json:"drum"`
	DrumKitID *string   `json:"drum_kit,omitempty"` // snapshot of game settings at join time
	Tempo     *int      `json:"tempo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
