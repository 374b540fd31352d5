package handlers

import (
	"errors"
	"net/http"

	"github.com/nomis52/botcore/action"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/queue"
	"github.com/nomis52/botcore/robot"
)

// SubmitResponse is returned by POST /api/actions.
type SubmitResponse struct {
	ID string `json:"id"`
}

// ActionsHandler handles requests to queue a routine.
type ActionsHandler struct {
	submitter Submitter
}

// NewActionsHandler creates a new ActionsHandler.
func NewActionsHandler(s Submitter) *ActionsHandler {
	return &ActionsHandler{
		submitter: s,
	}
}

// ServeHTTP implements http.Handler.
func (h *ActionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := controller.Request{Object: robot.NoObject}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	if req.Routine == "" {
		writeError(w, http.StatusBadRequest, "routine is required")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	id, err := h.submitter.Submit(req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, controller.ErrUnknownRoutine) {
			status = http.StatusNotFound
		}
		writeError(w, status, "%v", err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: id})
}

// CancelRequest defines the request body for POST /api/cancel. A non-zero
// tag cancels that action. Otherwise every action of type in slot is
// cancelled, where an empty type matches everything and a missing slot
// means every slot.
type CancelRequest struct {
	Tag  action.Tag        `json:"tag,omitempty"`
	Slot *queue.SlotHandle `json:"slot,omitempty"`
	Type string            `json:"type,omitempty"`
}

// CancelHandler handles cancellation requests.
type CancelHandler struct {
	canceller Canceller
}

// NewCancelHandler creates a new CancelHandler.
func NewCancelHandler(c Canceller) *CancelHandler {
	return &CancelHandler{
		canceller: c,
	}
}

// ServeHTTP implements http.Handler.
func (h *CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}

	if req.Tag != action.InvalidTag {
		if req.Slot != nil || req.Type != "" {
			writeError(w, http.StatusBadRequest, "tag cannot be combined with slot or type")
			return
		}
		h.canceller.CancelTag(req.Tag)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	t := action.TypeUnknown
	if req.Type != "" {
		var ok bool
		if t, ok = action.ParseType(req.Type); !ok {
			writeError(w, http.StatusBadRequest, "unknown action type %q", req.Type)
			return
		}
	}
	slot := queue.UnknownSlot
	if req.Slot != nil {
		slot = *req.Slot
	}
	h.canceller.Cancel(slot, t)
	w.WriteHeader(http.StatusAccepted)
}
