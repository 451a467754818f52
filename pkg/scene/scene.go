// Package scene tracks ordered multi-situation scripted sequences
// layered over free-roam navigation. A scene instance persists in the
// player's save state and auto-resumes a situation whenever the
// player's location/NPC context matches its predicate.
package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/world"
)

// LocationRef resolves to a location id at predicate-evaluation time.
// It is either a literal id or an expression bound to an NPC's current
// location. The NPC form is the important one: NPCs relocate between
// situations, so snapshotting a location id at authoring time binds a
// later situation to a stale place.
type LocationRef struct {
	LocationID string `json:"location_id,omitempty"`
	NpcID      string `json:"npc_id,omitempty"` // "wherever this NPC currently is"
}

// Resolve evaluates the reference against the current world state.
func (r LocationRef) Resolve(w world.Reader) (string, error) {
	if r.NpcID != "" {
		loc, err := w.NPCLocation(r.NpcID)
		if err != nil {
			return "", fmt.Errorf("resolving location of npc %q: %w", r.NpcID, err)
		}
		return loc, nil
	}
	if r.LocationID == "" {
		return "", fmt.Errorf("location reference is empty: %w", world.ErrNotFound)
	}
	return r.LocationID, nil
}

// Choice is one player option of a situation, carrying its own effect
// branch. The branch is applied atomically by the effect engine.
type Choice struct {
	ID      string          `json:"id"`
	Label   string          `json:"label,omitempty"`
	Effects card.EffectList `json:"effects,omitempty"`
}

// SituationTemplate is one gated step of a scene template.
type SituationTemplate struct {
	Name             string      `json:"name"`
	RequiredLocation LocationRef `json:"required_location"`
	RequiredNpcID    string      `json:"required_npc_id,omitempty"`
	Choices          []Choice    `json:"choices"`
}

func (s *SituationTemplate) choice(choiceID string) (*Choice, bool) {
	for i := range s.Choices {
		if s.Choices[i].ID == choiceID {
			return &s.Choices[i], true
		}
	}
	return nil, false
}

// Template is an authored scene: an ordered sequence of situations.
type Template struct {
	ID         string              `json:"id"`
	Name       string              `json:"name,omitempty"`
	Situations []SituationTemplate `json:"situations"`
}

// Validate checks a template for authoring errors.
func (t *Template) Validate() error {
	if t.ID == "" {
		return &card.ContentError{Reason: "scene template missing id"}
	}
	if len(t.Situations) == 0 {
		return &card.ContentError{Reason: fmt.Sprintf("scene %q has no situations", t.ID)}
	}
	for i, sit := range t.Situations {
		if sit.RequiredLocation.LocationID == "" && sit.RequiredLocation.NpcID == "" {
			return &card.ContentError{Reason: fmt.Sprintf("scene %q situation %d has no location reference", t.ID, i)}
		}
		if len(sit.Choices) == 0 {
			return &card.ContentError{Reason: fmt.Sprintf("scene %q situation %d has no choices", t.ID, i)}
		}
		for _, ch := range sit.Choices {
			for _, e := range ch.Effects {
				if !card.KnownKind(e.Kind) {
					return &card.ContentError{Reason: fmt.Sprintf("scene %q situation %d: unknown effect kind %q", t.ID, i, e.Kind)}
				}
			}
		}
	}
	return nil
}

// Status is the lifecycle state of a scene instance.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusAwaiting   Status = "awaiting_situation"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Instance is a live scene in the player's save state. The situation
// index never decreases; completed situations do not re-trigger.
type Instance struct {
	ID         uuid.UUID `json:"id"`
	TemplateID string    `json:"template_id"`
	Index      int       `json:"index"`
	Status     Status    `json:"status"`

	// Transient resources created by this scene's choices; torn down
	// on completion or abandonment. An orphan here is a bug.
	TransientLocations []string `json:"transient_locations,omitempty"`
	TransientItems     []string `json:"transient_items,omitempty"`

	template *Template
}

// Current returns the awaited situation, or nil once terminal.
func (in *Instance) Current() *SituationTemplate {
	if in.Status != StatusAwaiting || in.template == nil || in.Index >= len(in.template.Situations) {
		return nil
	}
	return &in.template.Situations[in.Index]
}

// SceneConsistencyError reports a situation whose resumption context
// became permanently unreachable (e.g. its NPC left the world). The
// scene is abandoned and its transient resources cleaned up.
type SceneConsistencyError struct {
	SceneID    uuid.UUID
	TemplateID string
	Reason     string
}

func (e *SceneConsistencyError) Error() string {
	return fmt.Sprintf("scene %s (%s) lost its resumption context: %s", e.SceneID, e.TemplateID, e.Reason)
}
