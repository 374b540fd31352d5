package handlers

import (
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ConfigHandler serves the active configuration with secrets masked. YAML
// by default, JSON with ?format=json.
type ConfigHandler struct {
	provider ConfigProvider
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(provider ConfigProvider) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

// ServeHTTP implements http.Handler.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.provider.Config().Redacted()

	switch format := r.URL.Query().Get("format"); format {
	case "", "yaml":
		w.Header().Set("Content-Type", "text/yaml")
		w.WriteHeader(http.StatusOK)
		if err := yaml.NewEncoder(w).Encode(cfg); err != nil {
			slog.Error("failed to encode config", "format", "yaml", "error", err)
		}
	case "json":
		writeJSON(w, http.StatusOK, cfg)
	default:
		writeError(w, http.StatusBadRequest, "unknown format %q, want yaml or json", format)
	}
}
