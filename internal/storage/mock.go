package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/scenario"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/state"
	"github.com/parley-engine/parley/pkg/world"
)

// MockStorage is an in-memory Storage for handler tests.
type MockStorage struct {
	mu sync.Mutex

	SaveStates map[uuid.UUID]*state.SaveState
	Catalog    *card.Catalog
	Templates  map[string]*scene.Template
	Scenarios  map[string]*scenario.Scenario

	PingErr error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		SaveStates: make(map[uuid.UUID]*state.SaveState),
		Templates:  make(map[string]*scene.Template),
		Scenarios:  make(map[string]*scenario.Scenario),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return m.PingErr }
func (m *MockStorage) Close() error                   { return nil }

func (m *MockStorage) SaveGameState(ctx context.Context, gs *state.SaveState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveStates[gs.ID] = gs
	return nil
}

func (m *MockStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SaveStates[id], nil
}

func (m *MockStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.SaveStates, id)
	return nil
}

func (m *MockStorage) LoadCatalog(ctx context.Context) (*card.Catalog, error) {
	if m.Catalog == nil {
		return nil, fmt.Errorf("mock storage has no catalog")
	}
	return m.Catalog, nil
}

func (m *MockStorage) LoadSceneTemplates(ctx context.Context) (map[string]*scene.Template, error) {
	return m.Templates, nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.Scenarios))
	for f, s := range m.Scenarios {
		out[s.Name] = f
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	s, ok := m.Scenarios[filename]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", filename, world.ErrNotFound)
	}
	return s, nil
}
