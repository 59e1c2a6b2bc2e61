package api

import (
	"net/http"
)

// Rating result reasons as reported by RatingApplier.
const (
	reasonApplied      = "applied"
	reasonNotFound     = "not_found"
	reasonStorageError = "storage_error"
)

// RatingHandler applies contest ratings.
type RatingHandler struct {
	deps RatingApplier
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingApplier) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandlePostRating handles POST /contests/{id}/rating requests.
func (h *RatingHandler) HandlePostRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	id, err := contestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res := h.deps.ApplyRating(r.Context(), id)
	writeJSON(w, ratingStatus(res.Reason), res)
}

func ratingStatus(reason string) int {
	switch reason {
	case reasonApplied:
		return http.StatusOK
	case reasonNotFound:
		return http.StatusNotFound
	case reasonStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusConflict
	}
}
