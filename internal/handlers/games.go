package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/internal/game"
	"github.com/parley-engine/parley/internal/storage"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/state"
)

// GamesHandler owns the /v1/games surface.
// Routes:
// POST   /v1/games                                  - create save from scenario
// GET    /v1/games/{id}                             - read save state
// DELETE /v1/games/{id}                             - delete save state
// POST   /v1/games/{id}/move                        - change free-roam context
// GET    /v1/games/{id}/situations                  - active situations
// POST   /v1/games/{id}/conversation                - start a conversation
// POST   /v1/games/{id}/conversation/play           - play a card
// POST   /v1/games/{id}/conversation/listen         - listen
// POST   /v1/games/{id}/conversation/discard        - discard down
// POST   /v1/games/{id}/conversation/end            - end the conversation
// POST   /v1/games/{id}/scenes/{sceneID}/choice     - choose in active situation
// POST   /v1/games/{id}/scenes/{sceneID}/abandon    - abandon a scene
type GamesHandler struct {
	runtime *game.Runtime
	storage storage.Storage
	logger  *slog.Logger
}

func NewGamesHandler(runtime *game.Runtime, storage storage.Storage, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{
		runtime: runtime,
		storage: storage,
		logger:  logger,
	}
}

type CreateGameRequest struct {
	Scenario string `json:"scenario"` // scenario file name
}

type MoveRequest struct {
	LocationID string `json:"location_id"`
	NpcID      string `json:"npc_id,omitempty"`
}

type MoveResponse struct {
	Context    scene.Context            `json:"context"`
	Situations []*scene.ActiveSituation `json:"situations,omitempty"`
}

type StartConversationRequest struct {
	NpcID string `json:"npc_id"`
}

type PlayRequest struct {
	CardID string `json:"card_id"`
}

type DiscardRequest struct {
	CardIDs []string `json:"card_ids"`
}

type ChoiceRequest struct {
	ChoiceID string `json:"choice_id"`
}

func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
			return
		}
		h.createGame(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid save state ID", "id", parts[0], "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid game ID format"})
		return
	}

	gs, err := h.storage.LoadGameState(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if gs == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "game not found"})
		return
	}

	switch {
	case len(parts) == 1:
		h.gameByID(w, r, gs)
	case len(parts) == 2 && parts[1] == "move":
		h.move(w, r, gs)
	case len(parts) == 2 && parts[1] == "situations":
		h.situations(w, r, gs)
	case parts[1] == "conversation":
		h.conversation(w, r, gs, parts[2:])
	case len(parts) == 3 && parts[1] == "scenes":
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing scene action"})
	case len(parts) == 4 && parts[1] == "scenes":
		h.scenes(w, r, gs, parts[2], parts[3])
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown route"})
	}
}

func (h *GamesHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Scenario == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "scenario is required"})
		return
	}

	gs, err := h.runtime.NewGame(r.Context(), req.Scenario)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.storage.SaveGameState(r.Context(), gs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, gs)
}

func (h *GamesHandler) gameByID(w http.ResponseWriter, r *http.Request, gs *state.SaveState) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, gs)
	case http.MethodDelete:
		if err := h.storage.DeleteGameState(r.Context(), gs.ID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	}
}

func (h *GamesHandler) move(w http.ResponseWriter, r *http.Request, gs *state.SaveState) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocationID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "location_id is required"})
		return
	}

	active, err := h.runtime.Move(gs, scene.Context{LocationID: req.LocationID, NpcID: req.NpcID})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.storage.SaveGameState(r.Context(), gs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Context: gs.Context, Situations: active})
}

func (h *GamesHandler) situations(w http.ResponseWriter, r *http.Request, gs *state.SaveState) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	active, err := h.runtime.ActiveSituations(gs)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, active)
}

func (h *GamesHandler) conversation(w http.ResponseWriter, r *http.Request, gs *state.SaveState, rest []string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	action := ""
	if len(rest) == 1 {
		action = rest[0]
	} else if len(rest) > 1 {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown route"})
		return
	}

	switch action {
	case "":
		var req StartConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NpcID == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "npc_id is required"})
			return
		}
		s, err := h.runtime.StartConversation(r.Context(), gs, req.NpcID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, s)
	case "play":
		var req PlayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "card_id is required"})
			return
		}
		result, err := h.runtime.Play(r.Context(), gs, req.CardID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, result)
	case "listen":
		result, err := h.runtime.Listen(r.Context(), gs)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, result)
	case "discard":
		var req DiscardRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		if err := h.runtime.DiscardDown(r.Context(), gs, req.CardIDs); err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, gs.Session)
	case "end":
		if err := h.runtime.EndConversation(r.Context(), gs); err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, gs)
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown conversation action"})
	}
}

func (h *GamesHandler) scenes(w http.ResponseWriter, r *http.Request, gs *state.SaveState, sceneIDStr, action string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}
	sceneID, err := uuid.Parse(sceneIDStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid scene ID format"})
		return
	}

	switch action {
	case "choice":
		var req ChoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChoiceID == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "choice_id is required"})
			return
		}
		result, err := h.runtime.SceneChoice(gs, sceneID, req.ChoiceID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, result)
	case "abandon":
		if err := h.runtime.SceneAbandon(gs, sceneID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.save(w, r, gs, gs)
	default:
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "unknown scene action"})
	}
}

// save persists the mutated state and writes the response payload.
func (h *GamesHandler) save(w http.ResponseWriter, r *http.Request, gs *state.SaveState, payload interface{}) {
	if err := h.storage.SaveGameState(r.Context(), gs); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
