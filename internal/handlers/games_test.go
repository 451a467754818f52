package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/internal/game"
	"github.com/parley-engine/parley/internal/storage"
	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/conversation"
	"github.com/parley-engine/parley/pkg/scenario"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/state"
)

func setupGamesHandler(t *testing.T) (*GamesHandler, *storage.MockStorage) {
	t.Helper()
	catalog := testCatalog(t)

	tpl := &scene.Template{
		ID:   "first_meeting",
		Name: "First Meeting",
		Situations: []scene.SituationTemplate{
			{
				Name:             "Catch Elena's eye",
				RequiredLocation: scene.LocationRef{LocationID: "common_room"},
				RequiredNpcID:    "elena",
				Choices: []scene.Choice{{
					ID: "request_privacy",
					Effects: card.EffectList{
						{Kind: card.KindTokenGain, NpcID: "elena", TokenType: "trust", Amount: 1},
					},
				}},
			},
		},
	}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("template invalid: %v", err)
	}

	store := storage.NewMockStorage()
	store.Templates[tpl.ID] = tpl
	store.Scenarios["the_courier.json"] = &scenario.Scenario{
		Name:      "The Courier",
		FileName:  "the_courier.json",
		Locations: []string{"common_room", "market_square"},
		NPCs: map[string]scenario.NPC{
			"elena": {
				Location:   "common_room",
				Attributes: map[string]int{"openness": 14, "composure": 12},
				Deck:       []string{"steady_greeting", "steady_greeting", "steady_greeting"},
			},
		},
		Scenes:          []string{"first_meeting"},
		OpeningLocation: "common_room",
		HandSize:        2,
	}

	runtime := game.NewRuntime(testLogger(), catalog, store.Templates, store)
	return NewGamesHandler(runtime, store, testLogger()), store
}

// doJSON drives the handler and decodes the response into out (when
// out is non-nil and the body is JSON).
func doJSON(t *testing.T, h http.Handler, method, path string, body, out interface{}) int {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if out != nil && rr.Body.Len() > 0 {
		if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response from %s %s: %v", method, path, err)
		}
	}
	return rr.Code
}

func TestGamesHandler_Lifecycle(t *testing.T) {
	handler, _ := setupGamesHandler(t)

	var gs state.SaveState
	code := doJSON(t, handler, http.MethodPost, "/v1/games", CreateGameRequest{Scenario: "the_courier.json"}, &gs)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if gs.Context.LocationID != "common_room" {
		t.Errorf("expected opening location common_room, got %q", gs.Context.LocationID)
	}
	if len(gs.Scenes) != 1 {
		t.Fatalf("expected 1 scene instance, got %d", len(gs.Scenes))
	}
	base := "/v1/games/" + gs.ID.String()

	var loaded state.SaveState
	if code := doJSON(t, handler, http.MethodGet, base, nil, &loaded); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if loaded.ID != gs.ID {
		t.Errorf("identity mismatch: %s vs %s", loaded.ID, gs.ID)
	}

	// The opening context matches the scene's first situation.
	var active []*scene.ActiveSituation
	if code := doJSON(t, handler, http.MethodGet, base+"/situations", nil, &active); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active situation, got %d", len(active))
	}

	var choice scene.ChoiceResult
	sceneURL := fmt.Sprintf("%s/scenes/%s/choice", base, gs.Scenes[0].ID)
	if code := doJSON(t, handler, http.MethodPost, sceneURL, ChoiceRequest{ChoiceID: "request_privacy"}, &choice); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !choice.Completed {
		t.Errorf("expected scene completion, got %+v", choice)
	}

	var moved MoveResponse
	if code := doJSON(t, handler, http.MethodPost, base+"/move", MoveRequest{LocationID: "market_square"}, &moved); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if moved.Context.LocationID != "market_square" {
		t.Errorf("expected market_square, got %q", moved.Context.LocationID)
	}
	if code := doJSON(t, handler, http.MethodPost, base+"/move", MoveRequest{LocationID: "the_moon"}, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown location, got %d", code)
	}

	// Elena is not at the market.
	if code := doJSON(t, handler, http.MethodPost, base+"/conversation", StartConversationRequest{NpcID: "elena"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for absent npc, got %d", code)
	}

	if code := doJSON(t, handler, http.MethodPost, base+"/move", MoveRequest{LocationID: "common_room"}, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	var s session.Session
	if code := doJSON(t, handler, http.MethodPost, base+"/conversation", StartConversationRequest{NpcID: "elena"}, &s); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if s.NpcID != "elena" || len(s.Hand) != 2 {
		t.Fatalf("unexpected session: npc=%q hand=%d", s.NpcID, len(s.Hand))
	}
	if code := doJSON(t, handler, http.MethodPost, base+"/conversation", StartConversationRequest{NpcID: "elena"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for second conversation, got %d", code)
	}
	if code := doJSON(t, handler, http.MethodPost, base+"/move", MoveRequest{LocationID: "market_square"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for move during conversation, got %d", code)
	}

	if code := doJSON(t, handler, http.MethodPost, base+"/conversation/play", PlayRequest{CardID: "bold_lie"}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for card outside hand, got %d", code)
	}

	var turn conversation.TurnResult
	if code := doJSON(t, handler, http.MethodPost, base+"/conversation/play", PlayRequest{CardID: "steady_greeting"}, &turn); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if turn.CardID != "steady_greeting" {
		t.Errorf("unexpected turn result: %+v", turn)
	}

	if code := doJSON(t, handler, http.MethodPost, base+"/conversation/listen", nil, &turn); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if turn.Pool.Doubt != 0 {
		t.Errorf("expected doubt cleared, got %d", turn.Pool.Doubt)
	}

	// Hand is under the limit; an unforced discard is a rule violation.
	if code := doJSON(t, handler, http.MethodPost, base+"/conversation/discard", DiscardRequest{CardIDs: []string{"steady_greeting"}}, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unforced discard, got %d", code)
	}

	if code := doJSON(t, handler, http.MethodPost, base+"/conversation/end", nil, &loaded); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if loaded.Session != nil {
		t.Error("expected session cleared after end")
	}

	if code := doJSON(t, handler, http.MethodDelete, base, nil, nil); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	if code := doJSON(t, handler, http.MethodGet, base, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestGamesHandler_SceneAbandon(t *testing.T) {
	handler, store := setupGamesHandler(t)

	var gs state.SaveState
	if code := doJSON(t, handler, http.MethodPost, "/v1/games", CreateGameRequest{Scenario: "the_courier.json"}, &gs); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	base := "/v1/games/" + gs.ID.String()

	url := fmt.Sprintf("%s/scenes/%s/abandon", base, gs.Scenes[0].ID)
	if code := doJSON(t, handler, http.MethodPost, url, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	saved := store.SaveStates[gs.ID]
	if saved.Scenes[0].Status != scene.StatusAbandoned {
		t.Errorf("expected abandoned status, got %s", saved.Scenes[0].Status)
	}

	// Abandoning twice is rejected.
	if code := doJSON(t, handler, http.MethodPost, url, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 on second abandon, got %d", code)
	}
	// Unknown instance ids are 404, malformed ones 400.
	badURL := fmt.Sprintf("%s/scenes/%s/abandon", base, uuid.New())
	if code := doJSON(t, handler, http.MethodPost, badURL, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown scene, got %d", code)
	}
	if code := doJSON(t, handler, http.MethodPost, base+"/scenes/nope/abandon", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed scene id, got %d", code)
	}
}

func TestGamesHandler_BadRequests(t *testing.T) {
	handler, _ := setupGamesHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   int
	}{
		{name: "create without scenario", method: http.MethodPost, path: "/v1/games", body: CreateGameRequest{}, code: http.StatusBadRequest},
		{name: "create unknown scenario", method: http.MethodPost, path: "/v1/games", body: CreateGameRequest{Scenario: "ghost.json"}, code: http.StatusNotFound},
		{name: "malformed game id", method: http.MethodGet, path: "/v1/games/not-a-uuid", code: http.StatusBadRequest},
		{name: "missing game", method: http.MethodGet, path: "/v1/games/" + uuid.NewString(), code: http.StatusNotFound},
		{name: "list not allowed", method: http.MethodGet, path: "/v1/games", code: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp ErrorResponse
			code := doJSON(t, handler, tt.method, tt.path, tt.body, &errResp)
			if code != tt.code {
				t.Fatalf("expected %d, got %d (%s)", tt.code, code, errResp.Error)
			}
			if errResp.Error == "" {
				t.Error("expected error message in response")
			}
		})
	}
}
