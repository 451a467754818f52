// Package conversation orchestrates turns: it decides the outcome
// branch of a played card, applies it through the effect engine, and
// implements the LISTEN safety valve.
package conversation

import (
	"errors"
	"log/slog"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/effect"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

// TurnState is the facade's turn-level state. Between public calls the
// facade always rests in AwaitingCardSelection or ConversationEnded;
// the intermediate states exist within a single synchronous turn.
type TurnState string

const (
	StateAwaitingCardSelection TurnState = "awaiting_card_selection"
	StateResolvingOutcome      TurnState = "resolving_outcome"
	StateApplyingEffects       TurnState = "applying_effects"
	StateConversationEnded     TurnState = "conversation_ended"
)

// Observer is notified after every completed turn-level action. The
// scene machine subscribes to re-evaluate resumption predicates.
type Observer interface {
	ConversationTurn(npcID string)
}

// TurnResult is the player-visible outcome of one turn action.
type TurnResult struct {
	CardID       string               `json:"card_id,omitempty"`
	Outcome      Outcome              `json:"outcome,omitempty"`
	NoEffect     bool                 `json:"no_effect,omitempty"` // branch rolled back
	Applied      []effect.Description `json:"applied,omitempty"`
	DoubtCleared int                  `json:"doubt_cleared,omitempty"`
	Drawn        string               `json:"drawn,omitempty"`
	Pool         session.Pool         `json:"pool"`
	Hand         []string             `json:"hand"`
}

// Facade runs one conversation. Turn processing is synchronous and
// sequential; no two turns of the same session execute concurrently.
type Facade struct {
	logger      *slog.Logger
	catalog     *card.Catalog
	world       world.World
	engine      *effect.Engine
	adjudicator Adjudicator

	sess      *session.Session
	state     TurnState
	observers []Observer
}

func NewFacade(logger *slog.Logger, catalog *card.Catalog, w world.World, adjudicator Adjudicator) *Facade {
	return &Facade{
		logger:      logger,
		catalog:     catalog,
		world:       w,
		engine:      effect.NewEngine(logger),
		adjudicator: adjudicator,
		state:       StateConversationEnded,
	}
}

// Start opens a new session. Any previous session is archived.
func (f *Facade) Start(cfg session.StartConfig) (*session.Session, error) {
	s, err := session.Start(cfg, f.catalog)
	if err != nil {
		return nil, err
	}
	f.sess = s
	f.state = StateAwaitingCardSelection
	f.logger.Info("conversation started",
		"session_id", s.ID,
		"npc_id", s.NpcID,
		"deck_size", len(s.Deck),
		"hand_size", len(s.Hand))
	return s, nil
}

// Resume attaches an existing session (loaded from save state).
func (f *Facade) Resume(s *session.Session) {
	f.sess = s
	f.state = StateAwaitingCardSelection
}

func (f *Facade) Session() *session.Session { return f.sess }
func (f *Facade) State() TurnState          { return f.state }

func (f *Facade) Subscribe(o Observer) {
	f.observers = append(f.observers, o)
}

func (f *Facade) notify() {
	for _, o := range f.observers {
		o.ConversationTurn(f.sess.NpcID)
	}
}

func (f *Facade) guardTurn() error {
	if f.sess == nil || f.state == StateConversationEnded {
		return &session.RuleViolationError{Reason: "conversation has ended"}
	}
	if f.state != StateAwaitingCardSelection {
		return &session.RuleViolationError{Reason: "a turn is already in flight"}
	}
	return nil
}

// Play spends and resolves one card. The adjudicator picks the branch;
// the effect engine applies it all-or-nothing. A precondition failure
// rolls the branch back but the card stays played: the initiative cost
// is not refunded.
func (f *Facade) Play(cardID string) (*TurnResult, error) {
	if err := f.guardTurn(); err != nil {
		return nil, err
	}
	if f.sess.NeedsDiscardDown() {
		return nil, &session.RuleViolationError{Reason: "hand over limit; discard down first"}
	}

	c, err := f.sess.Play(cardID, f.catalog)
	if err != nil {
		return nil, err
	}

	f.state = StateResolvingOutcome
	outcome := f.adjudicator.Adjudicate(c, f.sess.Pool)
	branch := c.Effects.Success
	if outcome == OutcomeFailure {
		branch = c.Effects.Failure
	}

	f.state = StateApplyingEffects
	result := &TurnResult{CardID: cardID, Outcome: outcome}
	res, err := f.engine.Apply(f.world, &f.sess.Pool, f.sess.NpcID, branch)
	if err != nil {
		var pre *effect.PreconditionError
		if !errors.As(err, &pre) {
			f.state = StateAwaitingCardSelection
			return nil, err
		}
		// Whole branch rolled back; the play itself stands.
		result.NoEffect = true
		f.sess.Record(cardID, "no_effect")
		f.logger.Info("branch had no effect",
			"session_id", f.sess.ID,
			"card_id", cardID,
			"reason", pre.Error())
	} else {
		result.Applied = effect.DescribeList(res.Applied)
		f.sess.Record(cardID, string(outcome))
	}

	f.sess.FinishPlay(c)
	f.endTurn(result)
	return result, nil
}

// Listen is the safety valve against Doubt accumulation: Doubt resets
// to zero, Momentum drops by the amount cleared, Cadence drops by 3.
// Initiative is untouched and the action is always legal while the
// conversation is live. One card is drawn afterwards if any remain.
func (f *Facade) Listen() (*TurnResult, error) {
	if f.sess == nil || f.state == StateConversationEnded {
		return nil, &session.RuleViolationError{Reason: "conversation has ended"}
	}

	cleared := f.sess.Pool.Doubt
	f.sess.Pool.Doubt = 0
	f.sess.Pool.Momentum = max(0, f.sess.Pool.Momentum-cleared)
	f.sess.Pool.Cadence -= 3

	result := &TurnResult{DoubtCleared: cleared}
	if drawn, err := f.sess.Draw(); err == nil {
		result.Drawn = drawn
	}

	f.logger.Debug("listen",
		"session_id", f.sess.ID,
		"doubt_cleared", cleared,
		"momentum", f.sess.Pool.Momentum,
		"cadence", f.sess.Pool.Cadence)
	f.endTurn(result)
	return result, nil
}

// DiscardDown resolves a pending over-limit hand.
func (f *Facade) DiscardDown(selection []string) error {
	if f.sess == nil || f.state == StateConversationEnded {
		return &session.RuleViolationError{Reason: "conversation has ended"}
	}
	if err := f.sess.DiscardDown(selection); err != nil {
		return err
	}
	f.notify()
	return nil
}

// End closes the conversation. Ending is only permitted at a turn
// boundary; effect application always runs to completion first.
func (f *Facade) End() error {
	if f.sess == nil || f.state == StateConversationEnded {
		return &session.RuleViolationError{Reason: "conversation has ended"}
	}
	if f.state != StateAwaitingCardSelection {
		return &session.RuleViolationError{Reason: "cannot end mid-turn"}
	}
	f.state = StateConversationEnded
	f.logger.Info("conversation ended",
		"session_id", f.sess.ID,
		"turns", f.sess.Turn)
	f.notify()
	return nil
}

func (f *Facade) endTurn(result *TurnResult) {
	f.sess.EndTurn()
	f.state = StateAwaitingCardSelection
	result.Pool = f.sess.Pool
	result.Hand = append([]string(nil), f.sess.Hand...)
	f.notify()
}
