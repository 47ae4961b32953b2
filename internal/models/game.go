package models

import "time"

// OpenGameCode is the reserved code of the always-available practice
// session. Player-created games take codes from a sequence starting at 1,
// so the sentinel never collides with an assigned code.
const OpenGameCode int64 = 0

// Game represents one drum-circle session.
type Game struct {
	Code      int64     `json:"code"`
	Running   bool      `json:"running"`
	StartTime *int64    `json:"start_time,omitempty"` // ms since epoch, set once at start
	Tempo     *int      `json:"tempo,omitempty"`      // beats per minute
	DrumKitID *string   `json:"drum_kit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the game is the unmetered open session.
func (g *Game) IsOpen() bool {
	return g.Code == OpenGameCode
}
