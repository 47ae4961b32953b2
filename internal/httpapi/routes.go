package httpapi

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kenfehling/drum-circle-api/internal/fanout"
)

// Handlers bundles everything the router mounts. Hub is optional: it is
// only set when the in-process fan-out driver is active.
type Handlers struct {
	Games   *GameHandler
	Players *PlayerHandler
	Effects *EffectHandler
	Time    *TimeHandler
	Hub     *fanout.Hub
}

// Routes mounts the REST surface on a new mux.
func Routes(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /games", h.Games.HandleCreateGame)
	mux.HandleFunc("GET /games", h.Games.HandleListGames)
	mux.HandleFunc("GET /games/{code}", h.Games.HandleGetGame)
	mux.HandleFunc("PATCH /games/{code}", h.Games.HandlePatchGame)
	mux.HandleFunc("DELETE /games/{code}", h.Games.HandleDeleteGame)

	mux.HandleFunc("GET /games/{code}/players", h.Players.HandleListPlayers)
	mux.HandleFunc("POST /games/{code}/players", h.Players.HandleJoinGame)

	mux.HandleFunc("POST /games/{code}/{color}/{effect}", h.Effects.HandleSendEffect)

	mux.HandleFunc("GET /drum-kits", h.Games.HandleListDrumKits)
	mux.HandleFunc("GET /time", h.Time.HandleGetTime)

	if h.Hub != nil {
		mux.HandleFunc("GET /games/{code}/stream", func(w http.ResponseWriter, r *http.Request) {
			code, ok := parseCode(r)
			if !ok {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}
			if err := h.Hub.Subscribe(w, r, code); err != nil {
				log.Error().Err(err).Int64("game_code", code).Msg("websocket subscribe failed")
			}
		})
	}

	return mux
}
