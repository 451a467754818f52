package effect

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/parley-engine/parley/pkg/card"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func testWorld() *world.GameWorld {
	w := world.NewGameWorld()
	w.AddLocation("common_room")
	w.AddNPC("elena", "common_room")
	w.QueueLetter("contract_letter", 24)
	w.QueueLetter("harbor_manifest", 48)
	return w
}

func TestApply_Success(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{Initiative: 1}

	branch := card.EffectList{
		{Kind: card.KindMomentum, Amount: 2},
		{Kind: card.KindTokenGain, TokenType: "trust", Amount: 1},
		{Kind: card.KindInformationReveal, InfoID: "smuggling_route"},
		{Kind: card.KindDeadlineExtend, LetterID: "contract_letter", Amount: 6},
	}

	res, err := engine.Apply(w, &pool, "elena", branch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Applied) != 4 {
		t.Errorf("expected 4 applied effects, got %d", len(res.Applied))
	}
	if pool.Momentum != 2 {
		t.Errorf("expected momentum 2, got %d", pool.Momentum)
	}
	if got := w.TokenBalance("elena", "trust"); got != 1 {
		t.Errorf("expected 1 trust token, got %d", got)
	}
	if !w.InformationKnown("smuggling_route") {
		t.Error("expected information to be known")
	}
}

func TestApply_AtomicRollback(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{Initiative: 3, Momentum: 1}

	// The spend fails (no trust tokens); everything before it must
	// roll back too.
	branch := card.EffectList{
		{Kind: card.KindMomentum, Amount: 5},
		{Kind: card.KindInformationGain, InfoID: "guild_seal"},
		{Kind: card.KindTokenSpend, TokenType: "trust", Amount: 1},
	}

	_, err := engine.Apply(w, &pool, "elena", branch)
	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %T: %v", err, err)
	}
	if preErr.Effect.Kind != card.KindTokenSpend {
		t.Errorf("expected token_spend to fail, got %s", preErr.Effect.Kind)
	}

	if pool.Momentum != 1 {
		t.Errorf("pool mutated despite rollback: momentum %d", pool.Momentum)
	}
	if w.InformationKnown("guild_seal") {
		t.Error("world mutated despite rollback")
	}
}

func TestApply_InitiativeCannotGoNegative(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{Initiative: 1}

	_, err := engine.Apply(w, &pool, "elena", card.EffectList{
		{Kind: card.KindInitiative, Amount: -2},
	})
	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %T: %v", err, err)
	}
	if pool.Initiative != 1 {
		t.Errorf("pool mutated despite rollback: initiative %d", pool.Initiative)
	}
}

func TestApply_MomentumAndDoubtFloorAtZero(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{Momentum: 1, Doubt: 1}

	_, err := engine.Apply(w, &pool, "elena", card.EffectList{
		{Kind: card.KindMomentum, Amount: -5},
		{Kind: card.KindDoubt, Amount: -5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.Momentum != 0 || pool.Doubt != 0 {
		t.Errorf("expected floors at zero, got momentum %d doubt %d", pool.Momentum, pool.Doubt)
	}
}

func TestApply_TransientCreationsReported(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{}

	res, err := engine.Apply(w, &pool, "elena", card.EffectList{
		{Kind: card.KindLocationCreate, LocationID: "generated:private_room", Transient: true},
		{Kind: card.KindItemGrant, ItemID: "room_key", Transient: true},
		{Kind: card.KindItemGrant, ItemID: "sealed_letter"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.TransientLocations) != 1 || res.TransientLocations[0] != "generated:private_room" {
		t.Errorf("unexpected transient locations: %v", res.TransientLocations)
	}
	if len(res.TransientItems) != 1 || res.TransientItems[0] != "room_key" {
		t.Errorf("unexpected transient items: %v", res.TransientItems)
	}
	if !w.LocationExists("generated:private_room") {
		t.Error("expected generated location to exist")
	}
	if !w.ItemHeld("sealed_letter") {
		t.Error("expected non-transient item to be held")
	}
}

func TestApply_DefaultNpcScoping(t *testing.T) {
	w := testWorld()
	engine := NewEngine(testLogger())
	pool := session.Pool{}

	// No NpcID in the payload: the conversation partner is implied.
	_, err := engine.Apply(w, &pool, "elena", card.EffectList{
		{Kind: card.KindObligationCreate, ObligationID: "deliver_contract"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.ObligationOpen("deliver_contract") {
		t.Error("expected obligation to be open")
	}
}
