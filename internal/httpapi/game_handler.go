package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kenfehling/drum-circle-api/internal/drumkit"
	"github.com/kenfehling/drum-circle-api/internal/game"
)

// GameHandler serves the game lifecycle endpoints.
type GameHandler struct {
	games *game.App
}

// NewGameHandler creates a game handler.
func NewGameHandler(games *game.App) *GameHandler {
	return &GameHandler{games: games}
}

// parseCode reads the {code} path value. Codes are numeric; anything
// else cannot name a game, so it reads as not-found rather than
// malformed.
func parseCode(r *http.Request) (int64, bool) {
	code, err := strconv.ParseInt(r.PathValue("code"), 10, 64)
	if err != nil {
		return 0, false
	}
	return code, true
}

// HandleCreateGame handles POST /games.
func (h *GameHandler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req game.CreateGameRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	g, err := h.games.CreateGame(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleListGames handles GET /games.
func (h *GameHandler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListGames(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// HandleGetGame handles GET /games/{code}.
func (h *GameHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	g, err := h.games.GetGame(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// patchGameRequest is the PATCH body: a settings patch plus the start
// trigger. Present fields apply, absent fields leave the game untouched.
type patchGameRequest struct {
	Tempo   *int    `json:"tempo"`
	DrumKit *string `json:"drum_kit"`
	Running *bool   `json:"running"`
}

// HandlePatchGame handles PATCH /games/{code}: updates settings and,
// when running:true is included, starts the game.
func (h *GameHandler) HandlePatchGame(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	var req patchGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.games.GetGame(r.Context(), code)
	if err != nil {
		writeAppError(w, err)
		return
	}

	settings := game.UpdateSettingsRequest{Tempo: req.Tempo, DrumKit: req.DrumKit}
	if !settings.IsEmpty() {
		g, err = h.games.UpdateSettings(r.Context(), code, settings)
		if err != nil {
			writeAppError(w, err)
			return
		}
	}

	if req.Running != nil && *req.Running {
		started, delivery, err := h.games.StartGame(r.Context(), code)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if notifyFailed(delivery) {
			writeNotifyError(w)
			return
		}
		g = started
	}

	writeJSON(w, http.StatusOK, g)
}

// HandleDeleteGame handles DELETE /games/{code}.
func (h *GameHandler) HandleDeleteGame(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	if err := h.games.DeleteGame(r.Context(), code); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleListDrumKits handles GET /drum-kits.
func (h *GameHandler) HandleListDrumKits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, drumkit.Kits())
}
