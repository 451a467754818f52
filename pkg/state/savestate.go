// Package state holds the save-state envelope: everything needed to
// resume a playthrough, captured per the serialization contract (hand,
// deck order, discard, resource pool, situation index per scene).
package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

// SaveState is one player's complete resumable state.
type SaveState struct {
	ID        uuid.UUID `json:"id"`
	Scenario  string    `json:"scenario"` // scenario file name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	World   *world.GameWorld  `json:"world"`
	Context scene.Context     `json:"context"`
	Scenes  []*scene.Instance `json:"scenes,omitempty"`

	// Session is nil while the player is in free-roam.
	Session *session.Session `json:"session,omitempty"`
}

func NewSaveState(scenarioFile string) *SaveState {
	now := time.Now()
	return &SaveState{
		ID:        uuid.New(),
		Scenario:  scenarioFile,
		CreatedAt: now,
		UpdatedAt: now,
		World:     world.NewGameWorld(),
	}
}

// InConversation reports whether a session is live.
func (gs *SaveState) InConversation() bool {
	return gs.Session != nil
}
