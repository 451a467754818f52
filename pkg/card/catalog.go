package card

import (
	"fmt"
)

// ContentError reports a malformed or missing catalog entry. It is
// raised at load time and is fatal: the process should refuse to start
// rather than run with broken content.
type ContentError struct {
	CardID string
	Reason string
}

func (e *ContentError) Error() string {
	if e.CardID == "" {
		return "content error: " + e.Reason
	}
	return fmt.Sprintf("content error: card %q: %s", e.CardID, e.Reason)
}

// Catalog is the process-wide, read-only table of card definitions.
// It is constructed once at startup and shared by reference across all
// sessions; there is no mutation API.
type Catalog struct {
	cards map[string]*Card
	order []string // load order, for stable enumeration
}

// NewCatalog validates the definitions and builds the catalog.
// Validation failures are ContentErrors.
func NewCatalog(defs []Card) (*Catalog, error) {
	c := &Catalog{
		cards: make(map[string]*Card, len(defs)),
		order: make([]string, 0, len(defs)),
	}
	for i := range defs {
		def := defs[i]
		if err := validate(&def); err != nil {
			return nil, err
		}
		if _, dup := c.cards[def.ID]; dup {
			return nil, &ContentError{CardID: def.ID, Reason: "duplicate id"}
		}
		c.cards[def.ID] = &def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

func validate(c *Card) error {
	if c.ID == "" {
		return &ContentError{Reason: "missing card id"}
	}
	if !validType(c.Type) {
		return &ContentError{CardID: c.ID, Reason: fmt.Sprintf("invalid type %q", c.Type)}
	}
	if !validPersistence(c.Persistence) {
		return &ContentError{CardID: c.ID, Reason: fmt.Sprintf("invalid persistence %q", c.Persistence)}
	}
	if c.Depth < 0 {
		return &ContentError{CardID: c.ID, Reason: "negative depth"}
	}
	if c.InitiativeCost < 0 {
		return &ContentError{CardID: c.ID, Reason: "negative initiative cost"}
	}
	for _, e := range append(append(EffectList{}, c.Effects.Success...), c.Effects.Failure...) {
		if !KnownKind(e.Kind) {
			return &ContentError{CardID: c.ID, Reason: fmt.Sprintf("unknown effect kind %q", e.Kind)}
		}
	}
	// Renewable-generator invariant: a card that produces Initiative on
	// success must be recyclable, or the conversation economy depletes.
	if c.InitiativeGain() > 0 && c.Persistence != PersistenceEcho {
		return &ContentError{CardID: c.ID, Reason: "statement card generates initiative; must be echo"}
	}
	return nil
}

// Get looks up a card by id. A miss is a ContentError: session decks are
// built from catalog ids, so an unknown id means broken content, not a
// recoverable player action.
func (c *Catalog) Get(id string) (*Card, error) {
	card, ok := c.cards[id]
	if !ok {
		return nil, &ContentError{CardID: id, Reason: "not in catalog"}
	}
	return card, nil
}

// Len returns the number of card definitions.
func (c *Catalog) Len() int { return len(c.cards) }

// Filter selects cards for enumeration. Zero values match everything.
type Filter struct {
	Type        CardType
	Persistence Persistence
	Depth       *int // exact tier
	MaxDepth    *int
}

func (f Filter) matches(c *Card) bool {
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Persistence != "" && c.Persistence != f.Persistence {
		return false
	}
	if f.Depth != nil && c.Depth != *f.Depth {
		return false
	}
	if f.MaxDepth != nil && c.Depth > *f.MaxDepth {
		return false
	}
	return true
}

// Enumerate returns the cards matching the filter, in load order.
// Used by content-sustainability analysis, not by gameplay.
func (c *Catalog) Enumerate(f Filter) []*Card {
	var out []*Card
	for _, id := range c.order {
		if card := c.cards[id]; f.matches(card) {
			out = append(out, card)
		}
	}
	return out
}
