package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// Default page size when the limit query parameter is absent.
const defaultRatingsLimit = 10

// RatingsHandler handles leaderboard requests.
type RatingsHandler struct {
	svc      Service
	maxLimit int
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(svc Service, maxLimit int) *RatingsHandler {
	return &RatingsHandler{svc: svc, maxLimit: maxLimit}
}

// HandleGetRatings handles GET /api/ratings?limit=N requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n := defaultRatingsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
			return
		}
		n = parsed
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: limit above %d", ErrBadRequest, h.maxLimit))
		return
	}
	entries, err := h.svc.Top(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
