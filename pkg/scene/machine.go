package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/effect"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

// Context is the player's current free-roam context. NpcID is the NPC
// the player is engaging, if any.
type Context struct {
	LocationID string `json:"location_id"`
	NpcID      string `json:"npc_id,omitempty"`
}

// ActiveSituation is a situation whose predicate matches the current
// context; its choices are surfaced in place of default location
// interactions.
type ActiveSituation struct {
	SceneID    uuid.UUID          `json:"scene_id"`
	TemplateID string             `json:"template_id"`
	Index      int                `json:"index"`
	Situation  *SituationTemplate `json:"situation"`
}

// ChoiceResult reports the outcome of a situation choice.
type ChoiceResult struct {
	Applied   []effect.Description `json:"applied,omitempty"`
	Completed bool                 `json:"completed,omitempty"` // scene reached Completed
	Seamless  bool                 `json:"seamless,omitempty"`  // next situation matched without leaving
	Next      *ActiveSituation     `json:"next,omitempty"`
}

// Machine owns all live scene instances of one save. Multiple scenes
// may await situations concurrently; at most one situation per scene is
// active. The machine re-evaluates predicates on every context change.
type Machine struct {
	logger    *slog.Logger
	world     world.World
	engine    *effect.Engine
	templates map[string]*Template

	instances []*Instance
	ctx       Context
	pool      session.Pool // scratch pool for resource effects in scene choices
}

func NewMachine(logger *slog.Logger, w world.World, templates map[string]*Template) *Machine {
	return &Machine{
		logger:    logger,
		world:     w,
		engine:    effect.NewEngine(logger),
		templates: templates,
	}
}

// Trigger instantiates a scene from its template when a triggering
// event fires. The instance starts awaiting its first situation.
func (m *Machine) Trigger(templateID string) (*Instance, error) {
	tpl, ok := m.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("scene template %q: %w", templateID, world.ErrNotFound)
	}
	in := &Instance{
		ID:         uuid.New(),
		TemplateID: templateID,
		Status:     StatusAwaiting,
		template:   tpl,
	}
	m.instances = append(m.instances, in)
	m.logger.Info("scene triggered", "scene_id", in.ID, "template_id", templateID)
	return in, nil
}

// Restore re-attaches instances loaded from save state to their
// templates. Instances whose template no longer exists are abandoned.
func (m *Machine) Restore(instances []*Instance) error {
	for _, in := range instances {
		tpl, ok := m.templates[in.TemplateID]
		if !ok {
			in.Status = StatusAbandoned
			m.instances = append(m.instances, in)
			m.logger.Warn("restored scene has no template; abandoned",
				"scene_id", in.ID, "template_id", in.TemplateID)
			continue
		}
		in.template = tpl
		m.instances = append(m.instances, in)
	}
	return nil
}

// Instances returns every scene instance, live and terminal, for
// serialization and inspection.
func (m *Machine) Instances() []*Instance { return m.instances }

func (m *Machine) instance(id uuid.UUID) (*Instance, bool) {
	for _, in := range m.instances {
		if in.ID == id {
			return in, true
		}
	}
	return nil, false
}

// SetContext records a player context change (enter location, encounter
// NPC) and returns the situations that now match.
func (m *Machine) SetContext(ctx Context) []*ActiveSituation {
	m.ctx = ctx
	return m.evaluate()
}

// ConversationTurn implements the conversation facade's observer: a
// completed turn is a context change too.
func (m *Machine) ConversationTurn(npcID string) {
	m.ctx.NpcID = npcID
	m.evaluate()
}

// Active re-evaluates predicates against the current context.
func (m *Machine) Active() []*ActiveSituation { return m.evaluate() }

func (m *Machine) evaluate() []*ActiveSituation {
	var active []*ActiveSituation
	for _, in := range m.instances {
		sit := in.Current()
		if sit == nil {
			continue
		}
		match, err := m.matches(sit, m.ctx)
		if err != nil {
			// Context permanently unreachable: abandon and clean up.
			serr := &SceneConsistencyError{SceneID: in.ID, TemplateID: in.TemplateID, Reason: err.Error()}
			m.logger.Error("scene consistency lost", "scene_id", in.ID, "error", serr)
			m.abandon(in)
			continue
		}
		if match {
			active = append(active, &ActiveSituation{
				SceneID:    in.ID,
				TemplateID: in.TemplateID,
				Index:      in.Index,
				Situation:  sit,
			})
		}
	}
	return active
}

// matches evaluates the situation predicate: the player must be at the
// (dynamically resolved) required location, and the required NPC, if
// any, must currently be present there.
func (m *Machine) matches(sit *SituationTemplate, ctx Context) (bool, error) {
	required, err := sit.RequiredLocation.Resolve(m.world)
	if err != nil {
		return false, err
	}
	if ctx.LocationID != required {
		return false, nil
	}
	if sit.RequiredNpcID != "" {
		npcLoc, err := m.world.NPCLocation(sit.RequiredNpcID)
		if err != nil {
			return false, err
		}
		if npcLoc != ctx.LocationID {
			return false, nil
		}
	}
	return true, nil
}

// Choose applies one situation choice and advances the scene. The
// choice branch is all-or-nothing; a precondition failure leaves the
// situation unchanged. If the next situation's predicate already
// matches the same context, the scene advances seamlessly without an
// intervening exit to free-roam.
func (m *Machine) Choose(sceneID uuid.UUID, choiceID string) (*ChoiceResult, error) {
	in, ok := m.instance(sceneID)
	if !ok {
		return nil, fmt.Errorf("scene %s: %w", sceneID, world.ErrNotFound)
	}
	sit := in.Current()
	if sit == nil {
		return nil, &session.RuleViolationError{Reason: "scene is not awaiting a situation"}
	}
	match, err := m.matches(sit, m.ctx)
	if err != nil {
		m.abandon(in)
		return nil, &SceneConsistencyError{SceneID: in.ID, TemplateID: in.TemplateID, Reason: err.Error()}
	}
	if !match {
		return nil, &session.RuleViolationError{Reason: "situation is not active in the current context"}
	}
	choice, ok := sit.choice(choiceID)
	if !ok {
		return nil, &session.RuleViolationError{Reason: fmt.Sprintf("unknown choice %q", choiceID)}
	}

	res, err := m.engine.Apply(m.world, &m.pool, sit.RequiredNpcID, choice.Effects)
	if err != nil {
		return nil, err
	}
	in.TransientLocations = append(in.TransientLocations, res.TransientLocations...)
	in.TransientItems = append(in.TransientItems, res.TransientItems...)

	result := &ChoiceResult{Applied: effect.DescribeList(res.Applied)}
	in.Index++
	if in.Index >= len(in.template.Situations) {
		in.Status = StatusCompleted
		result.Completed = true
		m.cleanup(in)
		m.logger.Info("scene completed", "scene_id", in.ID, "template_id", in.TemplateID)
		return result, nil
	}

	next := in.Current()
	if match, err := m.matches(next, m.ctx); err == nil && match {
		result.Seamless = true
		result.Next = &ActiveSituation{
			SceneID:    in.ID,
			TemplateID: in.TemplateID,
			Index:      in.Index,
			Situation:  next,
		}
	}
	return result, nil
}

// Abandon cancels a scene explicitly. Honored only between situations;
// in-flight choice application always completes or rolls back first,
// which holds trivially because Choose is synchronous.
func (m *Machine) Abandon(sceneID uuid.UUID) error {
	in, ok := m.instance(sceneID)
	if !ok {
		return fmt.Errorf("scene %s: %w", sceneID, world.ErrNotFound)
	}
	if in.Status != StatusAwaiting {
		return &session.RuleViolationError{Reason: "scene is not active"}
	}
	m.abandon(in)
	return nil
}

func (m *Machine) abandon(in *Instance) {
	in.Status = StatusAbandoned
	m.cleanup(in)
	m.logger.Info("scene abandoned", "scene_id", in.ID, "template_id", in.TemplateID)
}

// cleanup tears down every transient resource the scene created.
// Generated locations become permanently inaccessible; scene-scoped
// items leave the inventory. Resources already gone are skipped.
func (m *Machine) cleanup(in *Instance) {
	tx := m.world.Begin()
	for _, loc := range in.TransientLocations {
		if err := tx.DestroyLocation(loc); err != nil && !errors.Is(err, world.ErrNotFound) {
			m.logger.Error("failed to destroy transient location",
				"scene_id", in.ID, "location_id", loc, "error", err)
		}
	}
	for _, item := range in.TransientItems {
		if err := tx.RemoveItem(item); err != nil && !errors.Is(err, world.ErrNotFound) {
			m.logger.Error("failed to remove transient item",
				"scene_id", in.ID, "item_id", item, "error", err)
		}
	}
	tx.Commit()
	in.TransientLocations = nil
	in.TransientItems = nil
}
