package effect

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/parley-engine/parley/pkg/card"
)

// Description is a structured record of one effect's mechanical
// consequence. It is derived from the variant on demand, never stored:
// flavor text must not drift from mechanical truth. Used for pre-commit
// transparency, showing consequences before the player confirms a play.
type Description struct {
	Kind     card.EffectKind `json:"kind"`
	Category string          `json:"category"` // "resource", "tokens", "letters", "knowledge", "world", "time"
	Target   string          `json:"target,omitempty"`
	Amount   int             `json:"amount,omitempty"`
	Summary  string          `json:"summary"`
}

var titler = cases.Title(language.AmericanEnglish)

// displayName turns an entity id like "mountain_pass" into "Mountain Pass".
func displayName(id string) string {
	return titler.String(strings.ReplaceAll(strings.ReplaceAll(id, "_", " "), "-", " "))
}

func signed(n int) string {
	if n >= 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}

// Describe maps an effect variant to its description record.
func Describe(e card.Effect) Description {
	switch e.Kind {
	case card.KindInitiative:
		return resourceDesc(e, "Initiative")
	case card.KindMomentum:
		return resourceDesc(e, "Momentum")
	case card.KindDoubt:
		return resourceDesc(e, "Doubt")
	case card.KindCadence:
		return resourceDesc(e, "Cadence")

	case card.KindTokenGain:
		return Description{Kind: e.Kind, Category: "tokens", Target: e.TokenType, Amount: e.Amount,
			Summary: fmt.Sprintf("Gain %d %s token(s)", e.Amount, displayName(e.TokenType))}
	case card.KindTokenSpend:
		return Description{Kind: e.Kind, Category: "tokens", Target: e.TokenType, Amount: -e.Amount,
			Summary: fmt.Sprintf("Spend %d %s token(s)", e.Amount, displayName(e.TokenType))}

	case card.KindLetterReorder:
		return Description{Kind: e.Kind, Category: "letters", Target: e.LetterID, Amount: e.Amount,
			Summary: fmt.Sprintf("Move %s by %s in the queue", displayName(e.LetterID), signed(e.Amount))}
	case card.KindLetterSwap:
		return Description{Kind: e.Kind, Category: "letters", Target: e.LetterID,
			Summary: fmt.Sprintf("Swap %s with %s", displayName(e.LetterID), displayName(e.OtherID))}
	case card.KindLetterRemove:
		return Description{Kind: e.Kind, Category: "letters", Target: e.LetterID,
			Summary: fmt.Sprintf("Remove %s from the queue", displayName(e.LetterID))}
	case card.KindLetterAdd:
		return Description{Kind: e.Kind, Category: "letters", Target: e.LetterID,
			Summary: fmt.Sprintf("Add %s to the queue", displayName(e.LetterID))}
	case card.KindDeadlineExtend:
		return Description{Kind: e.Kind, Category: "letters", Target: e.LetterID, Amount: e.Amount,
			Summary: fmt.Sprintf("Extend deadline of %s by %d hour(s)", displayName(e.LetterID), e.Amount)}

	case card.KindInformationGain:
		return Description{Kind: e.Kind, Category: "knowledge", Target: e.InfoID,
			Summary: fmt.Sprintf("Learn %s", displayName(e.InfoID))}
	case card.KindInformationReveal:
		return Description{Kind: e.Kind, Category: "knowledge", Target: e.InfoID,
			Summary: fmt.Sprintf("Reveal %s", displayName(e.InfoID))}

	case card.KindObligationCreate:
		return Description{Kind: e.Kind, Category: "world", Target: e.ObligationID,
			Summary: fmt.Sprintf("Take on obligation %s", displayName(e.ObligationID))}
	case card.KindRouteUnlock:
		return Description{Kind: e.Kind, Category: "world", Target: e.RouteName,
			Summary: fmt.Sprintf("Unlock route %s", displayName(e.RouteName))}
	case card.KindNpcUnlock:
		return Description{Kind: e.Kind, Category: "world", Target: e.NpcID,
			Summary: fmt.Sprintf("Unlock %s", displayName(e.NpcID))}
	case card.KindLocationUnlock:
		return Description{Kind: e.Kind, Category: "world", Target: e.LocationID,
			Summary: fmt.Sprintf("Unlock %s", displayName(e.LocationID))}
	case card.KindLocationCreate:
		return Description{Kind: e.Kind, Category: "world", Target: e.LocationID,
			Summary: fmt.Sprintf("Open access to %s", displayName(e.LocationID))}
	case card.KindItemGrant:
		return Description{Kind: e.Kind, Category: "world", Target: e.ItemID,
			Summary: fmt.Sprintf("Receive %s", displayName(e.ItemID))}
	case card.KindItemRemove:
		return Description{Kind: e.Kind, Category: "world", Target: e.ItemID,
			Summary: fmt.Sprintf("Give up %s", displayName(e.ItemID))}

	case card.KindTimePassage:
		return Description{Kind: e.Kind, Category: "time", Amount: e.Amount,
			Summary: fmt.Sprintf("%d hour(s) pass", e.Amount)}
	case card.KindStateChange:
		return Description{Kind: e.Kind, Category: "world", Target: e.StateKey,
			Summary: fmt.Sprintf("Set %s to %s", displayName(e.StateKey), e.StateValue)}
	case card.KindNegotiationOpen:
		return Description{Kind: e.Kind, Category: "world", Target: e.NpcID,
			Summary: "Open a negotiation"}
	}
	return Description{Kind: e.Kind, Category: "world", Summary: string(e.Kind)}
}

func resourceDesc(e card.Effect, name string) Description {
	return Description{
		Kind:     e.Kind,
		Category: "resource",
		Target:   strings.ToLower(name),
		Amount:   e.Amount,
		Summary:  fmt.Sprintf("%s %s", signed(e.Amount), name),
	}
}

// DescribeList maps a whole branch.
func DescribeList(branch card.EffectList) []Description {
	out := make([]Description, len(branch))
	for i, e := range branch {
		out[i] = Describe(e)
	}
	return out
}
