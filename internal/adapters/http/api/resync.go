package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// ResyncHandler queues manual resyncs.
type ResyncHandler struct {
	deps ResyncSubmitter
}

// NewResyncHandler creates a new resync handler.
func NewResyncHandler(deps ResyncSubmitter) *ResyncHandler {
	return &ResyncHandler{deps: deps}
}

// HandlePostResync handles POST /contests/{id}/resync[?user_id=N] requests.
// A request for a target that is already pending is acknowledged as a
// duplicate and not queued again.
func (h *ResyncHandler) HandlePostResync(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_resync"
	id, err := contestID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req := model.ResyncRequest{
		RequestID: uuid.NewString(),
		ContestID: id,
		Requested: time.Now(),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid user_id %q", raw)))
			return
		}
		req.UserID = userID
	}

	if h.deps.SeenAndRecord(r.Context(), req.Key()) {
		writeJSON(w, http.StatusOK, types.ResyncAck{Status: "duplicate", Duplicate: true})
		return
	}
	if ok := h.deps.Enqueue(r.Context(), req); !ok {
		h.deps.Unrecord(r.Context(), req.Key())
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, types.ResyncAck{Status: "accepted", RequestID: req.RequestID})
}
