// Package scenario defines the authored setup for a playthrough: the
// world seed, the conversation deck composition per NPC, and the scenes
// triggered at start.
package scenario

import (
	"fmt"

	"github.com/parley-engine/parley/pkg/card"
)

// NPC is an authored non-player character.
type NPC struct {
	Name       string         `json:"name,omitempty"`
	Location   string         `json:"location"`             // starting location id
	Attributes map[string]int `json:"attributes,omitempty"` // persona stats, e.g. openness, composure
	Deck       []string       `json:"deck,omitempty"`       // conversation deck card ids
}

// Letter seeds the delivery queue.
type Letter struct {
	ID       string `json:"id"`
	Deadline int    `json:"deadline,omitempty"` // in-game hours
}

// Scenario is the template for a playthrough.
type Scenario struct {
	Name            string         `json:"name"`
	FileName        string         `json:"file_name,omitempty"`
	Story           string         `json:"story,omitempty"`
	Locations       []string       `json:"locations"`
	NPCs            map[string]NPC `json:"npcs"`
	Letters         []Letter       `json:"letters,omitempty"`
	Scenes          []string       `json:"scenes,omitempty"` // scene template ids triggered at start
	OpeningLocation string         `json:"opening_location"`
	HandSize        int            `json:"hand_size,omitempty"`
}

// Validate cross-checks the scenario against loaded content. Failures
// are fatal at boot.
func (s *Scenario) Validate(catalog *card.Catalog) error {
	if s.Name == "" {
		return &card.ContentError{Reason: "scenario missing name"}
	}
	if len(s.Locations) == 0 {
		return &card.ContentError{Reason: fmt.Sprintf("scenario %q has no locations", s.Name)}
	}
	locs := make(map[string]bool, len(s.Locations))
	for _, l := range s.Locations {
		locs[l] = true
	}
	if !locs[s.OpeningLocation] {
		return &card.ContentError{Reason: fmt.Sprintf("scenario %q: opening location %q not defined", s.Name, s.OpeningLocation)}
	}
	for id, npc := range s.NPCs {
		if !locs[npc.Location] {
			return &card.ContentError{Reason: fmt.Sprintf("scenario %q: npc %q starts at unknown location %q", s.Name, id, npc.Location)}
		}
		for _, cardID := range npc.Deck {
			if _, err := catalog.Get(cardID); err != nil {
				return fmt.Errorf("scenario %q: npc %q deck: %w", s.Name, id, err)
			}
		}
	}
	return nil
}
