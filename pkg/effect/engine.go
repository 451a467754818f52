// Package effect resolves the tagged mechanical consequences of a
// played card or a situation choice. A branch is applied atomically:
// either every variant's precondition holds and all are applied, or
// none are and the caller gets a PreconditionError.
package effect

import (
	"fmt"
	"log/slog"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

// PreconditionError reports the first effect variant whose precondition
// did not hold. The whole branch has been rolled back; the observable
// result is "no mechanical change".
type PreconditionError struct {
	Effect card.Effect
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("effect %s precondition failed: %v", e.Effect.Kind, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Result describes a successfully applied branch. Transient creations
// are reported so the scene machine can register them for teardown.
type Result struct {
	Applied            card.EffectList `json:"applied,omitempty"`
	TransientLocations []string        `json:"transient_locations,omitempty"`
	TransientItems     []string        `json:"transient_items,omitempty"`
}

// Engine applies effect branches. It holds no world entities of its
// own; every write goes through the world.Tx handed out by the
// collaborator.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Apply resolves one outcome branch against the world and the session's
// resource pool. defaultNpcID scopes token and negotiation effects whose
// payload leaves the NPC implicit (the conversation partner).
func (e *Engine) Apply(w world.World, pool *session.Pool, defaultNpcID string, branch card.EffectList) (*Result, error) {
	tx := w.Begin()
	staged := *pool
	res := &Result{}

	for _, eff := range branch {
		if err := e.applyOne(tx, &staged, defaultNpcID, eff, res); err != nil {
			tx.Rollback()
			e.logger.Debug("branch rolled back",
				"effect", eff.Kind,
				"error", err)
			return nil, &PreconditionError{Effect: eff, Err: err}
		}
		res.Applied = append(res.Applied, eff)
	}

	tx.Commit()
	*pool = staged
	return res, nil
}

func (e *Engine) applyOne(tx world.Tx, pool *session.Pool, defaultNpcID string, eff card.Effect, res *Result) error {
	npcID := eff.NpcID
	if npcID == "" {
		npcID = defaultNpcID
	}

	switch eff.Kind {
	case card.KindInitiative:
		next := pool.Initiative + eff.Amount
		if next < 0 {
			return fmt.Errorf("initiative would go negative: %w", world.ErrConflict)
		}
		pool.Initiative = next
	case card.KindMomentum:
		pool.Momentum = max(0, pool.Momentum+eff.Amount)
	case card.KindDoubt:
		pool.Doubt = max(0, pool.Doubt+eff.Amount)
	case card.KindCadence:
		pool.Cadence += eff.Amount

	case card.KindTokenGain:
		return tx.AdjustTokens(npcID, eff.TokenType, eff.Amount)
	case card.KindTokenSpend:
		return tx.AdjustTokens(npcID, eff.TokenType, -eff.Amount)

	case card.KindLetterReorder:
		return tx.ReorderLetter(eff.LetterID, eff.Amount)
	case card.KindLetterSwap:
		return tx.SwapLetters(eff.LetterID, eff.OtherID)
	case card.KindLetterRemove:
		return tx.RemoveLetter(eff.LetterID)
	case card.KindLetterAdd:
		return tx.AddLetter(eff.LetterID)
	case card.KindDeadlineExtend:
		return tx.ExtendDeadline(eff.LetterID, eff.Amount)

	case card.KindInformationGain:
		return tx.GainInformation(eff.InfoID)
	case card.KindInformationReveal:
		return tx.RevealInformation(eff.InfoID)

	case card.KindObligationCreate:
		return tx.CreateObligation(eff.ObligationID, npcID)
	case card.KindRouteUnlock:
		return tx.UnlockRoute(eff.RouteName)
	case card.KindNpcUnlock:
		return tx.UnlockNPC(npcID)
	case card.KindLocationUnlock:
		return tx.UnlockLocation(eff.LocationID)
	case card.KindLocationCreate:
		if err := tx.CreateLocation(eff.LocationID, eff.Transient); err != nil {
			return err
		}
		if eff.Transient {
			res.TransientLocations = append(res.TransientLocations, eff.LocationID)
		}
	case card.KindItemGrant:
		if err := tx.GrantItem(eff.ItemID); err != nil {
			return err
		}
		if eff.Transient {
			res.TransientItems = append(res.TransientItems, eff.ItemID)
		}
	case card.KindItemRemove:
		return tx.RemoveItem(eff.ItemID)

	case card.KindTimePassage:
		return tx.AdvanceTime(eff.Amount)
	case card.KindStateChange:
		return tx.SetState(eff.StateKey, eff.StateValue)
	case card.KindNegotiationOpen:
		return tx.OpenNegotiation(npcID)

	default:
		return fmt.Errorf("unknown effect kind %q", eff.Kind)
	}
	return nil
}
