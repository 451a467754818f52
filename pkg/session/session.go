// Package session holds the per-conversation mutable state: deck, hand,
// discard pile and the resource pool. A session is created when a
// conversation starts and archived when the player exits to free-roam.
package session

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/card"
)

// HandLimit is the maximum hand size outside of a pending discard-down.
const HandLimit = 7

// Pool is the session's resource pool. Fields are exported for
// serialization only; gameplay reads and writes go through Session and
// facade operations.
type Pool struct {
	Initiative int `json:"initiative"`
	Momentum   int `json:"momentum"`
	Doubt      int `json:"doubt"`
	Cadence    int `json:"cadence"`
}

// PlayRecord is one entry of the played-card history, kept for
// transcript rendering.
type PlayRecord struct {
	Turn    int    `json:"turn"`
	CardID  string `json:"card_id"`
	Outcome string `json:"outcome"` // "success", "failure" or "no_effect"
}

// StartConfig describes the initial deck composition and optional
// resource seeding for a new session.
type StartConfig struct {
	NpcID    string   `json:"npc_id"`
	Deck     []string `json:"deck"` // card ids, duplicates allowed
	HandSize int      `json:"hand_size,omitempty"`
	Seed     *Pool    `json:"seed,omitempty"` // nil zeroes the pool
	RandSeed int64    `json:"rand_seed,omitempty"`
}

// Session is the mutable state of one conversation.
type Session struct {
	ID      uuid.UUID    `json:"id"`
	NpcID   string       `json:"npc_id"`
	Deck    []string     `json:"deck"`
	Hand    []string     `json:"hand"`
	Discard []string     `json:"discard"`
	Pool    Pool         `json:"pool"`
	Turn    int          `json:"turn"`
	Played  []PlayRecord `json:"played,omitempty"`

	// Statement cards consumed during the current turn. Excluded from
	// the empty-deck reshuffle, then folded into the regular discard at
	// the turn boundary.
	TurnConsumed []string `json:"turn_consumed,omitempty"`

	RandSeed int64 `json:"rand_seed"`

	rng *rand.Rand
}

// Start populates the deck from the catalog, shuffles it, draws the
// initial hand and seeds the resource pool. Unknown card ids are
// content errors: session decks are built at boot, not mid-play.
func Start(cfg StartConfig, catalog *card.Catalog) (*Session, error) {
	if len(cfg.Deck) == 0 {
		return nil, &RuleViolationError{Reason: "deck composition is empty"}
	}
	for _, id := range cfg.Deck {
		if _, err := catalog.Get(id); err != nil {
			return nil, fmt.Errorf("building deck: %w", err)
		}
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		ID:       uuid.New(),
		NpcID:    cfg.NpcID,
		Deck:     slices.Clone(cfg.Deck),
		Hand:     make([]string, 0, HandLimit),
		RandSeed: seed,
		rng:      rand.New(rand.NewSource(seed)),
	}
	if cfg.Seed != nil {
		s.Pool = *cfg.Seed
	}

	s.shuffleDeck()

	handSize := cfg.HandSize
	if handSize <= 0 || handSize > HandLimit {
		handSize = 5
	}
	for i := 0; i < handSize && len(s.Deck) > 0; i++ {
		if _, err := s.Draw(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) random() *rand.Rand {
	if s.rng == nil {
		// Restored from save state; reseed deterministically.
		s.rng = rand.New(rand.NewSource(s.RandSeed))
	}
	return s.rng
}

func (s *Session) shuffleDeck() {
	r := s.random()
	r.Shuffle(len(s.Deck), func(i, j int) {
		s.Deck[i], s.Deck[j] = s.Deck[j], s.Deck[i]
	})
}

// Draw moves one card from the deck to the hand. An empty deck is
// refilled by shuffling the discard pile back in, excluding Statement
// cards consumed this turn. The reshuffle is mandatory: without it long
// conversations deadlock once the deck runs dry.
func (s *Session) Draw() (string, error) {
	if len(s.Deck) == 0 {
		s.reshuffleDiscard()
	}
	if len(s.Deck) == 0 {
		return "", &RuleViolationError{Reason: "no cards available to draw"}
	}
	id := s.Deck[0]
	s.Deck = s.Deck[1:]
	s.Hand = append(s.Hand, id)
	return id, nil
}

func (s *Session) reshuffleDiscard() {
	if len(s.Discard) == 0 {
		return
	}
	held := make(map[string]int)
	for _, id := range s.TurnConsumed {
		held[id]++
	}
	var kept []string
	for _, id := range s.Discard {
		if held[id] > 0 {
			held[id]--
			kept = append(kept, id)
			continue
		}
		s.Deck = append(s.Deck, id)
	}
	s.Discard = kept
	s.shuffleDeck()
}

// Play validates and pays for a card: the card must be in hand and its
// initiative cost affordable. On success the cost is deducted and the
// card leaves the hand; the caller resolves its effects and then routes
// it with FinishPlay. On error no state changes.
func (s *Session) Play(cardID string, catalog *card.Catalog) (*card.Card, error) {
	i := slices.Index(s.Hand, cardID)
	if i < 0 {
		return nil, &InvalidCardError{CardID: cardID}
	}
	c, err := catalog.Get(cardID)
	if err != nil {
		return nil, err
	}
	if c.InitiativeCost > s.Pool.Initiative {
		return nil, &InsufficientResourceError{
			Resource: "initiative",
			Need:     c.InitiativeCost,
			Have:     s.Pool.Initiative,
		}
	}
	s.Pool.Initiative -= c.InitiativeCost
	s.Hand = slices.Delete(s.Hand, i, i+1)
	return c, nil
}

// FinishPlay routes a resolved card: Echo cards return to the deck at a
// random position, Statement cards are consumed into the discard pile
// and never reappear this session.
func (s *Session) FinishPlay(c *card.Card) {
	if c.Persistence == card.PersistenceEcho {
		pos := 0
		if len(s.Deck) > 0 {
			pos = s.random().Intn(len(s.Deck) + 1)
		}
		s.Deck = slices.Insert(s.Deck, pos, c.ID)
		return
	}
	s.Discard = append(s.Discard, c.ID)
	s.TurnConsumed = append(s.TurnConsumed, c.ID)
}

// DiscardDown removes exactly handSize-HandLimit cards from the hand.
// Only valid while the hand is over the limit.
func (s *Session) DiscardDown(selection []string) error {
	over := len(s.Hand) - HandLimit
	if over <= 0 {
		return &RuleViolationError{Reason: "hand is not over the limit"}
	}
	if len(selection) != over {
		return &RuleViolationError{
			Reason: fmt.Sprintf("discard-down requires exactly %d cards, got %d", over, len(selection)),
		}
	}
	// Validate the whole selection before mutating anything.
	hand := slices.Clone(s.Hand)
	for _, id := range selection {
		i := slices.Index(hand, id)
		if i < 0 {
			return &InvalidCardError{CardID: id}
		}
		hand = slices.Delete(hand, i, i+1)
	}
	for _, id := range selection {
		i := slices.Index(s.Hand, id)
		s.Hand = slices.Delete(s.Hand, i, i+1)
		s.Discard = append(s.Discard, id)
	}
	return nil
}

// NeedsDiscardDown reports whether the hand exceeds the limit.
func (s *Session) NeedsDiscardDown() bool {
	return len(s.Hand) > HandLimit
}

// EndTurn closes the turn boundary: this-turn Statement consumptions
// become ordinary discards eligible for future reshuffles.
func (s *Session) EndTurn() {
	s.Turn++
	s.TurnConsumed = nil
}

// Record appends a play-history entry.
func (s *Session) Record(cardID, outcome string) {
	s.Played = append(s.Played, PlayRecord{Turn: s.Turn, CardID: cardID, Outcome: outcome})
}
