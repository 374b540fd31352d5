package handlers

import (
	"errors"
	"net/http"

	"github.com/nomis52/botcore/server/cron"
)

// RoutineInfo describes one routine for /api/routines.
type RoutineInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	NeedsObject bool   `json:"needs_object"`
}

// RoutinesHandler lists the routine catalog.
type RoutinesHandler struct {
	provider RoutinesProvider
}

// NewRoutinesHandler creates a new RoutinesHandler.
func NewRoutinesHandler(provider RoutinesProvider) *RoutinesHandler {
	return &RoutinesHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *RoutinesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs := h.provider.Routines()
	out := make([]RoutineInfo, 0, len(rs))
	for _, name := range rs.Names() {
		rt := rs[name]
		out = append(out, RoutineInfo{Name: rt.Name, Description: rt.Description, NeedsObject: rt.NeedsObject})
	}
	writeJSON(w, http.StatusOK, out)
}

// FireScheduleHandler runs a configured schedule immediately, guard
// included, and returns its status.
type FireScheduleHandler struct {
	runner ScheduleRunner
}

// NewFireScheduleHandler creates a new FireScheduleHandler.
func NewFireScheduleHandler(runner ScheduleRunner) *FireScheduleHandler {
	return &FireScheduleHandler{
		runner: runner,
	}
}

// ServeHTTP implements http.Handler.
func (h *FireScheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, err := h.runner.Fire(r.PathValue("name"))
	switch {
	case errors.Is(err, cron.ErrUnknownSchedule):
		writeError(w, http.StatusNotFound, "%v", err)
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, st)
	default:
		writeJSON(w, http.StatusOK, st)
	}
}
