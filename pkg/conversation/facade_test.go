package conversation

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

func testCatalog(t *testing.T) *card.Catalog {
	t.Helper()
	catalog, err := card.NewCatalog([]card.Card{
		{
			ID: "opener", Type: card.TypeNormal, Persistence: card.PersistenceEcho,
			Effects: card.Branches{
				Success: card.EffectList{{Kind: card.KindInitiative, Amount: 2}},
				Failure: card.EffectList{{Kind: card.KindDoubt, Amount: 1}},
			},
		},
		{
			ID: "probe", Type: card.TypeRequest, Persistence: card.PersistenceStatement,
			Depth: 3, InitiativeCost: 1,
			Effects: card.Branches{
				Success: card.EffectList{{Kind: card.KindMomentum, Amount: 1}},
				Failure: card.EffectList{{Kind: card.KindDoubt, Amount: 2}},
			},
		},
		{
			ID: "gambit", Type: card.TypeExchange, Persistence: card.PersistenceStatement,
			Depth: 3, InitiativeCost: 1,
			Effects: card.Branches{
				Success: card.EffectList{{Kind: card.KindTokenSpend, TokenType: "trust", Amount: 1}},
				Failure: card.EffectList{{Kind: card.KindDoubt, Amount: 2}},
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return catalog
}

func testWorld() *world.GameWorld {
	w := world.NewGameWorld()
	w.AddLocation("common_room")
	w.AddNPC("elena", "common_room")
	return w
}

func startFacade(t *testing.T, deck []string, script []Outcome) *Facade {
	t.Helper()
	f := NewFacade(testLogger(), testCatalog(t), testWorld(), &ScriptedAdjudicator{Script: script})
	_, err := f.Start(session.StartConfig{
		NpcID:    "elena",
		Deck:     deck,
		HandSize: len(deck),
		RandSeed: 99,
	})
	if err != nil {
		t.Fatalf("failed to start conversation: %v", err)
	}
	return f
}

func TestPlay_InitiativeEconomy(t *testing.T) {
	// Start at Initiative=0, build it with a foundation card, then
	// spend it down and verify the rejection at zero.
	f := startFacade(t, []string{"opener", "probe", "probe", "probe"}, []Outcome{OutcomeSuccess})

	result, err := f.Play("opener")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeSuccess {
		t.Errorf("expected success, got %s", result.Outcome)
	}
	if result.Pool.Initiative != 2 {
		t.Errorf("expected initiative 2, got %d", result.Pool.Initiative)
	}
	// The echo card returned to the deck, not the discard pile.
	if len(f.Session().Discard) != 0 {
		t.Error("echo card must not be discarded")
	}

	if result, err = f.Play("probe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pool.Initiative != 1 {
		t.Errorf("expected initiative 1, got %d", result.Pool.Initiative)
	}
	if result, err = f.Play("probe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Pool.Initiative != 0 {
		t.Errorf("expected initiative 0, got %d", result.Pool.Initiative)
	}

	// Third probe at Initiative=0: rejected, nothing changes.
	poolBefore := f.Session().Pool
	handBefore := len(f.Session().Hand)
	_, err = f.Play("probe")
	var insErr *session.InsufficientResourceError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientResourceError, got %T: %v", err, err)
	}
	if f.Session().Pool != poolBefore {
		t.Error("pool mutated on rejected play")
	}
	if len(f.Session().Hand) != handBefore {
		t.Error("hand mutated on rejected play")
	}
	if f.State() != StateAwaitingCardSelection {
		t.Errorf("expected facade back at card selection, got %s", f.State())
	}
}

func TestPlay_FailureBranch(t *testing.T) {
	f := startFacade(t, []string{"opener"}, []Outcome{OutcomeFailure})

	result, err := f.Play("opener")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeFailure {
		t.Errorf("expected failure, got %s", result.Outcome)
	}
	if result.Pool.Doubt != 1 {
		t.Errorf("expected doubt 1 from failure branch, got %d", result.Pool.Doubt)
	}
	if result.Pool.Initiative != 0 {
		t.Errorf("success branch leaked: initiative %d", result.Pool.Initiative)
	}
}

func TestPlay_PreconditionFailureKeepsCost(t *testing.T) {
	// gambit's success branch spends a trust token that does not exist.
	// The branch rolls back, but the card stays played and its
	// initiative cost is not refunded.
	f := startFacade(t, []string{"opener", "gambit"}, []Outcome{OutcomeSuccess})

	if _, err := f.Play("opener"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.Play("gambit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NoEffect {
		t.Fatal("expected NoEffect result")
	}
	if len(result.Applied) != 0 {
		t.Errorf("expected no applied effects, got %d", len(result.Applied))
	}
	if result.Pool.Initiative != 1 {
		t.Errorf("expected cost kept (initiative 1), got %d", result.Pool.Initiative)
	}

	// Statement card is consumed even without effect.
	if len(f.Session().Discard) != 1 {
		t.Errorf("expected gambit in discard, got %v", f.Session().Discard)
	}
	records := f.Session().Played
	if len(records) != 2 || records[1].Outcome != "no_effect" {
		t.Errorf("unexpected play history: %+v", records)
	}
}

func TestListen(t *testing.T) {
	f := startFacade(t, []string{"opener", "probe"}, nil)
	s := f.Session()
	s.Pool = session.Pool{Doubt: 4, Momentum: 10, Cadence: 8}

	result, err := f.Listen()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DoubtCleared != 4 {
		t.Errorf("expected 4 doubt cleared, got %d", result.DoubtCleared)
	}
	if s.Pool.Doubt != 0 {
		t.Errorf("expected doubt 0, got %d", s.Pool.Doubt)
	}
	if s.Pool.Momentum != 6 {
		t.Errorf("expected momentum 6, got %d", s.Pool.Momentum)
	}
	if s.Pool.Cadence != 5 {
		t.Errorf("expected cadence 5, got %d", s.Pool.Cadence)
	}
	if s.Pool.Initiative != 0 {
		t.Errorf("listen must not touch initiative, got %d", s.Pool.Initiative)
	}
}

func TestPlay_BlockedWhileOverLimit(t *testing.T) {
	f := startFacade(t, []string{"opener"}, nil)
	s := f.Session()
	s.Hand = []string{"opener", "a", "b", "c", "d", "e", "f", "g"}

	_, err := f.Play("opener")
	if !errors.Is(err, session.ErrRuleViolation) {
		t.Fatalf("expected rule violation while over limit, got %v", err)
	}
}

func TestEnd(t *testing.T) {
	f := startFacade(t, []string{"opener"}, []Outcome{OutcomeSuccess})

	if err := f.End(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.State() != StateConversationEnded {
		t.Errorf("expected ended state, got %s", f.State())
	}

	// Everything is illegal after the end.
	if _, err := f.Play("opener"); !errors.Is(err, session.ErrRuleViolation) {
		t.Errorf("expected rule violation, got %v", err)
	}
	if _, err := f.Listen(); !errors.Is(err, session.ErrRuleViolation) {
		t.Errorf("expected rule violation, got %v", err)
	}
	if err := f.End(); !errors.Is(err, session.ErrRuleViolation) {
		t.Errorf("expected rule violation on double end, got %v", err)
	}
}

type countingObserver struct{ turns int }

func (o *countingObserver) ConversationTurn(string) { o.turns++ }

func TestObserverNotifiedPerTurn(t *testing.T) {
	f := startFacade(t, []string{"opener"}, []Outcome{OutcomeSuccess})
	obs := &countingObserver{}
	f.Subscribe(obs)

	if _, err := f.Play("opener"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Listen(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.End(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obs.turns != 3 {
		t.Errorf("expected 3 notifications, got %d", obs.turns)
	}
}
