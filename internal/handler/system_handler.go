package handler

import (
	"net/http"

	"pdf-layer-service/internal/domain"
)

// SystemHandler serves the unauthenticated health and version endpoints.
type SystemHandler struct {
	config domain.Config
}

func NewSystemHandler(config domain.Config) *SystemHandler {
	return &SystemHandler{config: config}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pdf-layer-service"})
}

func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app_env":     h.config.GetAppEnv(),
		"version":     h.config.GetVersion(),
		"commit_hash": h.config.GetCommitHash(),
	})
}
