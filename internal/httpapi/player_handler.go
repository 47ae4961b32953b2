package httpapi

import (
	"net/http"

	"github.com/kenfehling/drum-circle-api/internal/player"
)

// PlayerHandler serves the join and player-listing endpoints.
type PlayerHandler struct {
	players *player.App
}

// NewPlayerHandler creates a player handler.
func NewPlayerHandler(players *player.App) *PlayerHandler {
	return &PlayerHandler{players: players}
}

// HandleJoinGame handles POST /games/{code}/players.
func (h *PlayerHandler) HandleJoinGame(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	p, delivery, err := h.players.JoinGame(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if notifyFailed(delivery) {
		writeNotifyError(w)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleListPlayers handles GET /games/{code}/players.
func (h *PlayerHandler) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	players, err := h.players.ListPlayers(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}
