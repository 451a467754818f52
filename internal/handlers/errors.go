package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/effect"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses: rule violations and
// content errors are client faults, precondition and consistency
// failures are conflicts, missing entities are 404s.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		contentErr *card.ContentError
		preErr     *effect.PreconditionError
		sceneErr   *scene.SceneConsistencyError
	)
	switch {
	case errors.Is(err, session.ErrRuleViolation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &contentErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &preErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.As(err, &sceneErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, world.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
