package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nomis52/botcore/action"
)

// HistoryHandler handles requests for the completion history.
// An optional limit query parameter caps the number of records.
type HistoryHandler struct {
	provider HistoryProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{
		provider: provider,
	}
}

// ServeHTTP implements http.Handler.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	history := h.provider.History()
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit %q", s)
			return
		}
		if limit < len(history) {
			history = history[:limit]
		}
	}
	writeJSON(w, http.StatusOK, history)
}

// ActionLogsHandler handles requests for the captured logs of one action.
type ActionLogsHandler struct {
	provider ActionLogsProvider
}

// NewActionLogsHandler creates a new ActionLogsHandler.
func NewActionLogsHandler(provider ActionLogsProvider) *ActionLogsHandler {
	return &ActionLogsHandler{
		provider: provider,
	}
}

var errBadTag = errors.New("tag must be a positive integer")

func parseTag(s string) (action.Tag, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return action.InvalidTag, errBadTag
	}
	return action.Tag(n), nil
}

// ServeHTTP implements http.Handler.
func (h *ActionLogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tag, err := parseTag(r.PathValue("tag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	logs, ok := h.provider.Logs(tag)
	if !ok {
		writeError(w, http.StatusNotFound, "no logs for tag %d", tag)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
