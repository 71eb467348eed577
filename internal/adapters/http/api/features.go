package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/valetudo/internal/domain/model"
)

// FeaturesHandler serves the derived feature vector of a single contest.
type FeaturesHandler struct {
	svc Service
}

// NewFeaturesHandler creates a new features handler.
func NewFeaturesHandler(svc Service) *FeaturesHandler {
	return &FeaturesHandler{svc: svc}
}

// HandleGetFeatures handles GET /api/contests/{key}/features requests. Contest
// keys contain a '#' separator, so clients URL-escape them; the mux hands us
// the decoded path.
func (h *FeaturesHandler) HandleGetFeatures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/contests/")
	key, ok := strings.CutSuffix(rest, "/features")
	if !ok || key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: want /api/contests/{key}/features", ErrBadRequest))
		return
	}
	fv, err := h.svc.Features(r.Context(), model.ContestKey(key))
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, fv)
}
