package handlers

import (
	"log/slog"
	"net/http"

	"github.com/parley-engine/parley/internal/storage"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type HealthHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewHealthHandler(storage storage.Storage, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	resp := HealthResponse{Status: "ok", Storage: "ok"}
	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Error("Storage health check failed", "error", err)
		resp.Status = "degraded"
		resp.Storage = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
