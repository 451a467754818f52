package world

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func seeded() *GameWorld {
	w := NewGameWorld()
	w.AddLocation("common_room")
	w.AddLocation("market_square")
	w.AddNPC("elena", "common_room")
	w.AddNPC("bram", "market_square")
	w.QueueLetter("contract_letter", 24)
	w.QueueLetter("harbor_manifest", 48)
	w.QueueLetter("tax_notice", 12)
	return w
}

func TestTx_CommitAndRollback(t *testing.T) {
	w := seeded()

	tx := w.Begin()
	if err := tx.GrantItem("room_key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.ItemHeld("room_key") {
		t.Error("mutation not visible inside the transaction")
	}
	if w.ItemHeld("room_key") {
		t.Error("uncommitted mutation visible outside the transaction")
	}
	tx.Rollback()
	if w.ItemHeld("room_key") {
		t.Error("rolled-back mutation leaked")
	}

	tx = w.Begin()
	if err := tx.GrantItem("room_key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()
	if !w.ItemHeld("room_key") {
		t.Error("committed mutation not visible")
	}
}

func TestTx_NPCs(t *testing.T) {
	w := seeded()

	loc, err := w.NPCLocation("elena")
	if err != nil || loc != "common_room" {
		t.Fatalf("expected common_room, got %q (%v)", loc, err)
	}

	tx := w.Begin()
	if err := tx.MoveNPC("elena", "market_square"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()

	npcs, err := w.NPCsAt("market_square")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(npcs, []string{"bram", "elena"}) {
		t.Errorf("unexpected npcs: %v", npcs)
	}

	tx = w.Begin()
	if err := tx.RemoveNPC("elena"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()
	if _, err := w.NPCLocation("elena"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTx_Letters(t *testing.T) {
	w := seeded()

	tx := w.Begin()
	if err := tx.ReorderLetter("tax_notice", -2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.SwapLetters("contract_letter", "harbor_manifest"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.ExtendDeadline("contract_letter", 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()

	queue := w.LetterQueue()
	want := []string{"tax_notice", "harbor_manifest", "contract_letter"}
	if !slices.Equal(queue, want) {
		t.Errorf("expected %v, got %v", want, queue)
	}

	tx = w.Begin()
	if err := tx.RemoveLetter("tax_notice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.RemoveLetter("tax_notice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := tx.AddLetter("new_commission"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()

	if slices.Contains(w.LetterQueue(), "tax_notice") {
		t.Error("removed letter still queued")
	}
}

func TestTx_ReorderClampsToBounds(t *testing.T) {
	w := seeded()
	tx := w.Begin()
	if err := tx.ReorderLetter("contract_letter", -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.ReorderLetter("harbor_manifest", 99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()

	queue := w.LetterQueue()
	if queue[0] != "contract_letter" {
		t.Errorf("expected contract_letter first, got %v", queue)
	}
	if queue[len(queue)-1] != "harbor_manifest" {
		t.Errorf("expected harbor_manifest last, got %v", queue)
	}
}

func TestTx_Tokens(t *testing.T) {
	w := seeded()

	tx := w.Begin()
	if err := tx.AdjustTokens("elena", "trust", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.AdjustTokens("elena", "trust", -3); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on negative balance, got %v", err)
	}
	if err := tx.AdjustTokens("ghost", "trust", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown npc, got %v", err)
	}
	tx.Commit()

	if got := w.TokenBalance("elena", "trust"); got != 2 {
		t.Errorf("expected 2 trust, got %d", got)
	}
	// Token types are scoped per NPC.
	if got := w.TokenBalance("bram", "trust"); got != 0 {
		t.Errorf("expected 0 trust with bram, got %d", got)
	}
}

func TestTx_ConflictsAndIdempotence(t *testing.T) {
	w := seeded()
	tx := w.Begin()

	if err := tx.CreateLocation("common_room", false); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := tx.UnlockRoute("harbor_shortcut"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.UnlockRoute("harbor_shortcut"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on double unlock, got %v", err)
	}

	// Revealing twice is a no-op, not an error.
	if err := tx.RevealInformation("guild_seal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.RevealInformation("guild_seal"); err != nil {
		t.Fatalf("expected idempotent reveal, got %v", err)
	}

	if err := tx.AdvanceTime(-1); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on negative time, got %v", err)
	}
	tx.Commit()
}

func TestGameWorld_JSONRoundTrip(t *testing.T) {
	w := seeded()
	tx := w.Begin()
	if err := tx.AdjustTokens("elena", "trust", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.SetState("elena_audience", "concluded"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.AdvanceTime(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tx.Commit()

	data, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored := NewGameWorld()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := restored.TokenBalance("elena", "trust"); got != 3 {
		t.Errorf("expected 3 trust after restore, got %d", got)
	}
	if restored.StateValue("elena_audience") != "concluded" {
		t.Error("state value lost in round trip")
	}
	if restored.Clock() != 5 {
		t.Errorf("expected hour 5, got %d", restored.Clock())
	}
	if !slices.Equal(restored.LetterQueue(), w.LetterQueue()) {
		t.Error("letter queue lost in round trip")
	}
}
