package httpapi

import (
	"net/http"

	"github.com/jonboulle/clockwork"
)

// TimeHandler exposes the server clock so clients can estimate their
// skew before joining.
type TimeHandler struct {
	clock clockwork.Clock
}

// NewTimeHandler creates a time handler.
func NewTimeHandler(clock clockwork.Clock) *TimeHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimeHandler{clock: clock}
}

type timeResponse struct {
	Time int64 `json:"time"` // ms since epoch
}

// HandleGetTime handles GET /time.
func (h *TimeHandler) HandleGetTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, timeResponse{Time: h.clock.Now().UnixMilli()})
}
