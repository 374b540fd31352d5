package handlers

import (
	"net/http"
	"time"

	"github.com/nomis52/botcore/buildinfo"
	"github.com/nomis52/botcore/controller"
	"github.com/nomis52/botcore/robot"
	"github.com/nomis52/botcore/server/cron"
	"github.com/nomis52/botcore/status"
)

// NextRunResponse is the JSON response for the next run information.
type NextRunResponse struct {
	Scheduled bool       `json:"scheduled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
}

// SlotStatus merges the board's view of a slot with its queued actions.
type SlotStatus struct {
	status.Slot
	Actions []controller.QueuedAction `json:"actions"`
}

// APIStatusResponse is the consolidated response for /api/status.
type APIStatusResponse struct {
	Build     buildinfo.Properties `json:"build"`
	Robot     robot.State          `json:"robot"`
	Ticks     uint64               `json:"ticks"`
	Busy      bool                 `json:"busy"`
	Totals    status.Totals        `json:"totals"`
	Slots     []SlotStatus         `json:"slots"`
	Schedules []cron.Status        `json:"schedules"`
	NextRun   NextRunResponse      `json:"next_run"`
}

// APIStatusProvider aggregates all the providers needed for the status endpoint.
type APIStatusProvider interface {
	Snapshot() controller.Snapshot
	State() robot.State
	Board() *status.Board
	Schedules() []cron.Status
	NextRun() *time.Time
}

// APIStatusHandler handles requests for the consolidated status endpoint.
type APIStatusHandler struct {
	provider APIStatusProvider
}

// NewAPIStatusHandler creates a new APIStatusHandler.
func NewAPIStatusHandler(provider APIStatusProvider) *APIStatusHandler {
	return &APIStatusHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *APIStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Snapshot()
	board := h.provider.Board()

	queued := make(map[int][]controller.QueuedAction, len(snap.Slots))
	for _, s := range snap.Slots {
		queued[int(s.Slot)] = s.Actions
	}

	slots := make([]SlotStatus, 0, len(snap.Slots))
	seen := make(map[int]bool)
	for _, s := range board.Slots() {
		actions := queued[int(s.Slot)]
		if actions == nil {
			actions = []controller.QueuedAction{}
		}
		slots = append(slots, SlotStatus{Slot: s, Actions: actions})
		seen[int(s.Slot)] = true
	}
	// Slots registered but never observed, e.g. before their first tick.
	for _, s := range snap.Slots {
		if !seen[int(s.Slot)] {
			slots = append(slots, SlotStatus{Slot: status.Slot{Slot: s.Slot}, Actions: s.Actions})
		}
	}

	nextRun := h.provider.NextRun()
	resp := APIStatusResponse{
		Build:     buildinfo.Get(),
		Robot:     h.provider.State(),
		Ticks:     snap.Ticks,
		Busy:      snap.Busy(),
		Totals:    board.Totals(),
		Slots:     slots,
		Schedules: h.provider.Schedules(),
		NextRun: NextRunResponse{
			Scheduled: nextRun != nil,
			NextRun:   nextRun,
		},
	}

	writeJSON(w, http.StatusOK, resp)
}
