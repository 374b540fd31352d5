package handlers

import (
	"net/http"

	"github.com/nomis52/botcore/robot"
)

// WorldHandler serves a copy of every object in the world model, ordered by
// id. An optional type query parameter keeps one object family.
type WorldHandler struct {
	provider WorldProvider
}

// NewWorldHandler creates a new WorldHandler.
func NewWorldHandler(provider WorldProvider) *WorldHandler {
	return &WorldHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	objects, err := h.provider.WorldObjects()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading world: %v", err)
		return
	}
	if want := r.URL.Query().Get("type"); want != "" {
		kept := objects[:0]
		for _, o := range objects {
			if o.Type.String() == want {
				kept = append(kept, o)
			}
		}
		objects = kept
	}
	if objects == nil {
		objects = []robot.Object{}
	}
	writeJSON(w, http.StatusOK, objects)
}
