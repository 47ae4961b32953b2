// Package httpapi exposes the REST surface of the drum-circle service.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kenfehling/drum-circle-api/internal/fanout"
	"github.com/kenfehling/drum-circle-api/internal/game"
	"github.com/kenfehling/drum-circle-api/internal/player"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeAppError maps domain errors onto caller-facing statuses. Nothing
// is mutated when these fire, so no partial objects are ever returned.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, player.ErrGameFull):
		writeError(w, http.StatusForbidden, "game is full")
	case errors.Is(err, game.ErrGameRunning), errors.Is(err, game.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrTempoRequired),
		errors.Is(err, game.ErrInvalidTempo),
		errors.Is(err, game.ErrUnknownDrumKit),
		errors.Is(err, game.ErrInvalidColor):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// notifyFailed reports whether a synchronous fan-out delivery failed and
// the failure should become the request's result. A nil delivery means
// the deployment acknowledges before notifying.
func notifyFailed(d *fanout.Delivery) bool {
	return d != nil && !d.OK()
}

func writeNotifyError(w http.ResponseWriter) {
	writeError(w, http.StatusBadGateway, "event delivery failed")
}
