package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/scenario"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/state"
)

// Storage abstracts persistence: save states are Redis-backed, static
// content (cards, scene templates, scenarios) is filesystem-backed.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	SaveGameState(ctx context.Context, gs *state.SaveState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.SaveState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	LoadCatalog(ctx context.Context) (*card.Catalog, error)
	LoadSceneTemplates(ctx context.Context) (map[string]*scene.Template, error)
	ListScenarios(ctx context.Context) (map[string]string, error)
	GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error)
}
