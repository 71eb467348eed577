package api

import (
	"fmt"
	"net/http"
	"strings"
)

// CompetitorHandler handles single-competitor lookups.
type CompetitorHandler struct {
	svc Service
}

// NewCompetitorHandler creates a new competitor handler.
func NewCompetitorHandler(svc Service) *CompetitorHandler {
	return &CompetitorHandler{svc: svc}
}

// HandleGetCompetitor handles GET /api/competitors/{id} requests.
func (h *CompetitorHandler) HandleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/competitors/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing competitor id", ErrBadRequest))
		return
	}
	comp, err := h.svc.Competitor(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, comp)
}
