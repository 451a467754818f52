package handlers

import (
	"log/slog"
	"net/http"

	"github.com/parley-engine/parley/internal/storage"
)

// ScenariosHandler lists the available scenarios (name -> file name).
type ScenariosHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewScenariosHandler(storage storage.Storage, logger *slog.Logger) *ScenariosHandler {
	return &ScenariosHandler{storage: storage, logger: logger}
}

func (h *ScenariosHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	scenarios, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}
