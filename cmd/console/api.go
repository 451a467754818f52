package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/conversation"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/state"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends a request and decodes the response into out. Non-2xx
// responses are surfaced as the API's error message.
func do(client *http.Client, method, url string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func listScenarios(client *http.Client, baseURL string) ([]string, map[string]string, error) {
	var scenarioMap map[string]string
	if err := do(client, http.MethodGet, baseURL+"/v1/scenarios", nil, &scenarioMap); err != nil {
		return nil, nil, err
	}

	var names []string
	for name := range scenarioMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, scenarioMap, nil
}

func createGame(client *http.Client, baseURL, scenarioFile string) (*state.SaveState, error) {
	req := map[string]string{"scenario": scenarioFile}
	var gs state.SaveState
	if err := do(client, http.MethodPost, baseURL+"/v1/games", req, &gs); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return &gs, nil
}

func getGame(client *http.Client, baseURL string, id uuid.UUID) (*state.SaveState, error) {
	var gs state.SaveState
	if err := do(client, http.MethodGet, fmt.Sprintf("%s/v1/games/%s", baseURL, id), nil, &gs); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &gs, nil
}

// moveResult mirrors the API's move response.
type moveResult struct {
	Context    scene.Context            `json:"context"`
	Situations []*scene.ActiveSituation `json:"situations,omitempty"`
}

func moveTo(client *http.Client, baseURL string, id uuid.UUID, locationID, npcID string) (*moveResult, error) {
	req := map[string]string{"location_id": locationID}
	if npcID != "" {
		req["npc_id"] = npcID
	}
	var result moveResult
	if err := do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/move", baseURL, id), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func getSituations(client *http.Client, baseURL string, id uuid.UUID) ([]*scene.ActiveSituation, error) {
	var result []*scene.ActiveSituation
	if err := do(client, http.MethodGet, fmt.Sprintf("%s/v1/games/%s/situations", baseURL, id), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func startConversation(client *http.Client, baseURL string, id uuid.UUID, npcID string) error {
	req := map[string]string{"npc_id": npcID}
	return do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/conversation", baseURL, id), req, nil)
}

func playCard(client *http.Client, baseURL string, id uuid.UUID, cardID string) (*conversation.TurnResult, error) {
	req := map[string]string{"card_id": cardID}
	var result conversation.TurnResult
	if err := do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/conversation/play", baseURL, id), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func listen(client *http.Client, baseURL string, id uuid.UUID) (*conversation.TurnResult, error) {
	var result conversation.TurnResult
	if err := do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/conversation/listen", baseURL, id), struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func discardDown(client *http.Client, baseURL string, id uuid.UUID, cardIDs []string) error {
	req := map[string][]string{"card_ids": cardIDs}
	return do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/conversation/discard", baseURL, id), req, nil)
}

func endConversation(client *http.Client, baseURL string, id uuid.UUID) error {
	return do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/conversation/end", baseURL, id), struct{}{}, nil)
}

func sceneChoice(client *http.Client, baseURL string, id, sceneID uuid.UUID, choiceID string) (*scene.ChoiceResult, error) {
	req := map[string]string{"choice_id": choiceID}
	var result scene.ChoiceResult
	if err := do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/scenes/%s/choice", baseURL, id, sceneID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func sceneAbandon(client *http.Client, baseURL string, id, sceneID uuid.UUID) error {
	return do(client, http.MethodPost, fmt.Sprintf("%s/v1/games/%s/scenes/%s/abandon", baseURL, id, sceneID), struct{}{}, nil)
}
