package card

// CardType classifies the conversational role of a card.
type CardType string

const (
	TypeRequest  CardType = "request"
	TypePromise  CardType = "promise"
	TypeExchange CardType = "exchange"
	TypeNormal   CardType = "normal"
)

// Persistence controls what happens to a card after it resolves.
// Echo cards return to the deck; Statement cards are single-use and
// move permanently to the discard pile.
type Persistence string

const (
	PersistenceEcho      Persistence = "echo"
	PersistenceStatement Persistence = "statement"
)

// Branches holds the two outcome branches of a card. Exactly one branch
// is applied per play, chosen by the outcome adjudicator.
type Branches struct {
	Success EffectList `json:"success"`
	Failure EffectList `json:"failure"`
}

// Card is an immutable card definition. Cards are owned by the Catalog
// and shared by reference across all sessions; nothing mutates a Card
// after load.
type Card struct {
	ID             string      `json:"id"`
	Name           string      `json:"name,omitempty"`
	Type           CardType    `json:"type"`
	Depth          int         `json:"depth"`           // non-negative tier
	Persistence    Persistence `json:"persistence"`     // echo or statement
	InitiativeCost int         `json:"initiative_cost"` // non-negative
	Effects        Branches    `json:"effects"`
}

// InitiativeGain returns the net Initiative produced by the card's
// success branch. Used by the sustainability invariant: any card with
// a positive gain must be an Echo, or long conversations deplete the
// economy irreversibly.
func (c *Card) InitiativeGain() int {
	total := 0
	for _, e := range c.Effects.Success {
		if e.Kind == KindInitiative {
			total += e.Amount
		}
	}
	return total
}

// IsFoundation reports whether the card is a foundation card: low depth,
// zero cost, forming the sustainable base of play.
func (c *Card) IsFoundation() bool {
	return c.Depth <= 2 && c.InitiativeCost == 0 && c.Persistence == PersistenceEcho
}

func validType(t CardType) bool {
	switch t {
	case TypeRequest, TypePromise, TypeExchange, TypeNormal:
		return true
	}
	return false
}

func validPersistence(p Persistence) bool {
	return p == PersistenceEcho || p == PersistenceStatement
}
