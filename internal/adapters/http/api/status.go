package api

import (
	"net/http"

	service "github.com/okian/valetudo/internal/app"
	"github.com/okian/valetudo/internal/domain/model"
)

// statusResponse joins the in-memory run state with the durable checkpoint.
type statusResponse struct {
	service.RunStatus
	Checkpoint model.Checkpoint `json:"checkpoint"`
}

// StatusHandler reports the current run state and checkpoint.
type StatusHandler struct {
	svc Service
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(svc Service) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// HandleStatus handles GET /api/run/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	cp, err := h.svc.Checkpoint(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{RunStatus: h.svc.Status(), Checkpoint: cp})
}
