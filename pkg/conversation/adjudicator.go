package conversation

import (
	"fmt"
	"math/rand"

	"github.com/jwebster45206/d20"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/session"
)

// Outcome is the adjudicated result of a played card.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Adjudicator decides the outcome branch of a played card given the
// session context. The mechanism is a collaborator, not core state.
type Adjudicator interface {
	Adjudicate(c *card.Card, pool session.Pool) Outcome
}

// NewPersona builds the conversation partner as a d20 actor. Attributes
// like "openness" and "composure" feed the dice adjudicator.
func NewPersona(npcID string, attributes map[string]int) (*d20.Actor, error) {
	actor, err := d20.NewActor(npcID).
		WithHP(10).
		WithAC(10).
		WithAttributes(attributes).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build persona: %w", err)
	}
	return actor, nil
}

// DiceAdjudicator rolls a d20 against a difficulty derived from card
// depth and session tension. Deeper cards are harder; accumulated Doubt
// raises the bar, Momentum lowers it. The persona's openness helps the
// roll and its composure stiffens the difficulty.
type DiceAdjudicator struct {
	persona *d20.Actor
	rng     *rand.Rand
}

func NewDiceAdjudicator(persona *d20.Actor, seed int64) *DiceAdjudicator {
	return &DiceAdjudicator{
		persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (a *DiceAdjudicator) Adjudicate(c *card.Card, pool session.Pool) Outcome {
	dc := 8 + 2*c.Depth + pool.Doubt/2 - pool.Momentum/3
	bonus := 0
	if a.persona != nil {
		if v, ok := a.persona.Attribute("openness"); ok {
			bonus += v / 2
		}
		if v, ok := a.persona.Attribute("composure"); ok {
			dc += v / 2
		}
	}
	roll := a.rng.Intn(20) + 1
	if roll+bonus >= dc {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// ScriptedAdjudicator replays a fixed outcome sequence. Used by tests
// and tooling; repeats the last outcome once the script runs out.
type ScriptedAdjudicator struct {
	Script []Outcome
	next   int
}

func (a *ScriptedAdjudicator) Adjudicate(*card.Card, session.Pool) Outcome {
	if len(a.Script) == 0 {
		return OutcomeSuccess
	}
	if a.next >= len(a.Script) {
		return a.Script[len(a.Script)-1]
	}
	out := a.Script[a.next]
	a.next++
	return out
}
