package httpapi

import (
	"net/http"

	"github.com/kenfehling/drum-circle-api/internal/game"
	"github.com/kenfehling/drum-circle-api/internal/models"
)

// EffectHandler relays ephemeral effect signals between clients.
type EffectHandler struct {
	games *game.App
}

// NewEffectHandler creates an effect handler.
func NewEffectHandler(games *game.App) *EffectHandler {
	return &EffectHandler{games: games}
}

// HandleSendEffect handles POST /games/{code}/{color}/{effect}. The
// effect string is opaque to the server; it is relayed as-is.
func (h *EffectHandler) HandleSendEffect(w http.ResponseWriter, r *http.Request) {
	code, ok := parseCode(r)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	color := models.Color(r.PathValue("color"))
	effect := r.PathValue("effect")

	delivery, err := h.games.SendEffect(r.Context(), code, color, effect)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if notifyFailed(delivery) {
		writeNotifyError(w)
		return
	}
	w.WriteHeader(http.StatusOK)
}
