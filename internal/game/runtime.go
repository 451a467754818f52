// Package game binds a save state to live engine components. Handlers
// stay thin: they load a save, call one Runtime operation, and persist
// the save back.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/internal/storage"
	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/conversation"
	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/state"
	"github.com/parley-engine/parley/pkg/world"
)

// Runtime holds the process-wide immutable content and rebuilds
// per-save engine state on demand. Turn processing per save is
// synchronous; the API serves one action at a time.
type Runtime struct {
	logger    *slog.Logger
	catalog   *card.Catalog
	templates map[string]*scene.Template
	store     storage.Storage
}

func NewRuntime(logger *slog.Logger, catalog *card.Catalog, templates map[string]*scene.Template, store storage.Storage) *Runtime {
	return &Runtime{
		logger:    logger,
		catalog:   catalog,
		templates: templates,
		store:     store,
	}
}

func (r *Runtime) Catalog() *card.Catalog { return r.catalog }

// NewGame seeds a save state from a scenario: world entities, opening
// context, and the scenario's initial scene triggers.
func (r *Runtime) NewGame(ctx context.Context, scenarioFile string) (*state.SaveState, error) {
	sc, err := r.store.GetScenario(ctx, scenarioFile)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(r.catalog); err != nil {
		return nil, err
	}
	for _, id := range sc.Scenes {
		if _, ok := r.templates[id]; !ok {
			return nil, &card.ContentError{Reason: fmt.Sprintf("scenario %q references unknown scene template %q", sc.Name, id)}
		}
	}

	gs := state.NewSaveState(scenarioFile)
	for _, loc := range sc.Locations {
		gs.World.AddLocation(loc)
	}
	for id, npc := range sc.NPCs {
		gs.World.AddNPC(id, npc.Location)
	}
	for _, letter := range sc.Letters {
		gs.World.QueueLetter(letter.ID, letter.Deadline)
	}
	gs.Context = scene.Context{LocationID: sc.OpeningLocation}

	machine := scene.NewMachine(r.logger, gs.World, r.templates)
	for _, id := range sc.Scenes {
		if _, err := machine.Trigger(id); err != nil {
			return nil, err
		}
	}
	machine.SetContext(gs.Context)
	gs.Scenes = machine.Instances()

	r.logger.Info("new game created",
		"save_id", gs.ID,
		"scenario", sc.Name,
		"scenes", len(gs.Scenes))
	return gs, nil
}

// machine rebuilds the scene machine for a save.
func (r *Runtime) machine(gs *state.SaveState) (*scene.Machine, error) {
	m := scene.NewMachine(r.logger, gs.World, r.templates)
	if err := m.Restore(gs.Scenes); err != nil {
		return nil, err
	}
	gs.Scenes = m.Instances()
	return m, nil
}

// facade rebuilds the conversation facade for a save with a live
// session, wiring the scene machine as turn observer.
func (r *Runtime) facade(ctx context.Context, gs *state.SaveState, m *scene.Machine) (*conversation.Facade, error) {
	sc, err := r.store.GetScenario(ctx, gs.Scenario)
	if err != nil {
		return nil, err
	}
	var adjudicator conversation.Adjudicator
	npc, ok := sc.NPCs[gs.Session.NpcID]
	if ok && len(npc.Attributes) > 0 {
		persona, err := conversation.NewPersona(gs.Session.NpcID, npc.Attributes)
		if err != nil {
			return nil, err
		}
		adjudicator = conversation.NewDiceAdjudicator(persona, time.Now().UnixNano())
	} else {
		adjudicator = conversation.NewDiceAdjudicator(nil, time.Now().UnixNano())
	}

	f := conversation.NewFacade(r.logger, r.catalog, gs.World, adjudicator)
	f.Resume(gs.Session)
	f.Subscribe(m)
	return f, nil
}

// Move changes the player's free-roam context and returns any
// situations that resume there.
func (r *Runtime) Move(gs *state.SaveState, to scene.Context) ([]*scene.ActiveSituation, error) {
	if gs.InConversation() {
		return nil, &session.RuleViolationError{Reason: "cannot move while in a conversation"}
	}
	if !gs.World.LocationExists(to.LocationID) {
		return nil, fmt.Errorf("location %q: %w", to.LocationID, world.ErrNotFound)
	}
	m, err := r.machine(gs)
	if err != nil {
		return nil, err
	}
	gs.Context = to
	return m.SetContext(to), nil
}

// ActiveSituations re-evaluates resumption predicates in place.
func (r *Runtime) ActiveSituations(gs *state.SaveState) ([]*scene.ActiveSituation, error) {
	m, err := r.machine(gs)
	if err != nil {
		return nil, err
	}
	m.SetContext(gs.Context)
	return m.Active(), nil
}

// StartConversation opens a session with an NPC present at the
// player's location, using the NPC's authored deck.
func (r *Runtime) StartConversation(ctx context.Context, gs *state.SaveState, npcID string) (*session.Session, error) {
	if gs.InConversation() {
		return nil, &session.RuleViolationError{Reason: "a conversation is already active"}
	}
	loc, err := gs.World.NPCLocation(npcID)
	if err != nil {
		return nil, err
	}
	if loc != gs.Context.LocationID {
		return nil, &session.RuleViolationError{Reason: fmt.Sprintf("npc %q is not here", npcID)}
	}
	sc, err := r.store.GetScenario(ctx, gs.Scenario)
	if err != nil {
		return nil, err
	}
	npc, ok := sc.NPCs[npcID]
	if !ok || len(npc.Deck) == 0 {
		return nil, &session.RuleViolationError{Reason: fmt.Sprintf("npc %q has no conversation deck", npcID)}
	}

	m, err := r.machine(gs)
	if err != nil {
		return nil, err
	}
	var persona *conversation.DiceAdjudicator
	if len(npc.Attributes) > 0 {
		actor, err := conversation.NewPersona(npcID, npc.Attributes)
		if err != nil {
			return nil, err
		}
		persona = conversation.NewDiceAdjudicator(actor, time.Now().UnixNano())
	} else {
		persona = conversation.NewDiceAdjudicator(nil, time.Now().UnixNano())
	}
	f := conversation.NewFacade(r.logger, r.catalog, gs.World, persona)
	f.Subscribe(m)
	s, err := f.Start(session.StartConfig{
		NpcID:    npcID,
		Deck:     npc.Deck,
		HandSize: sc.HandSize,
	})
	if err != nil {
		return nil, err
	}
	gs.Session = s
	gs.Context.NpcID = npcID
	return s, nil
}

func (r *Runtime) withFacade(ctx context.Context, gs *state.SaveState, op func(*conversation.Facade) error) error {
	if !gs.InConversation() {
		return &session.RuleViolationError{Reason: "no active conversation"}
	}
	m, err := r.machine(gs)
	if err != nil {
		return err
	}
	f, err := r.facade(ctx, gs, m)
	if err != nil {
		return err
	}
	return op(f)
}

// Play resolves one card in the live conversation.
func (r *Runtime) Play(ctx context.Context, gs *state.SaveState, cardID string) (*conversation.TurnResult, error) {
	var result *conversation.TurnResult
	err := r.withFacade(ctx, gs, func(f *conversation.Facade) error {
		res, err := f.Play(cardID)
		result = res
		return err
	})
	return result, err
}

// Listen clears Doubt in the live conversation.
func (r *Runtime) Listen(ctx context.Context, gs *state.SaveState) (*conversation.TurnResult, error) {
	var result *conversation.TurnResult
	err := r.withFacade(ctx, gs, func(f *conversation.Facade) error {
		res, err := f.Listen()
		result = res
		return err
	})
	return result, err
}

// DiscardDown resolves an over-limit hand.
func (r *Runtime) DiscardDown(ctx context.Context, gs *state.SaveState, selection []string) error {
	return r.withFacade(ctx, gs, func(f *conversation.Facade) error {
		return f.DiscardDown(selection)
	})
}

// EndConversation closes and archives the live session.
func (r *Runtime) EndConversation(ctx context.Context, gs *state.SaveState) error {
	err := r.withFacade(ctx, gs, func(f *conversation.Facade) error {
		return f.End()
	})
	if err != nil {
		return err
	}
	gs.Session = nil
	gs.Context.NpcID = ""
	return nil
}

// SceneChoice applies a situation choice.
func (r *Runtime) SceneChoice(gs *state.SaveState, sceneID uuid.UUID, choiceID string) (*scene.ChoiceResult, error) {
	m, err := r.machine(gs)
	if err != nil {
		return nil, err
	}
	m.SetContext(gs.Context)
	return m.Choose(sceneID, choiceID)
}

// SceneAbandon cancels a scene and tears down its transient resources.
func (r *Runtime) SceneAbandon(gs *state.SaveState, sceneID uuid.UUID) error {
	m, err := r.machine(gs)
	if err != nil {
		return err
	}
	return m.Abandon(sceneID)
}
