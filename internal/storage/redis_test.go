package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/parley-engine/parley/pkg/scene"
	"github.com/parley-engine/parley/pkg/session"
	"github.com/parley-engine/parley/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func setupTestRedis(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisStorage(mr.Addr(), t.TempDir(), testLogger())
}

func TestRedisStorage_SaveStateRoundTrip(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	gs := state.NewSaveState("the_courier.json")
	gs.World.AddLocation("common_room")
	gs.World.AddNPC("elena", "common_room")
	gs.World.QueueLetter("contract_letter", 24)
	gs.Context = scene.Context{LocationID: "common_room"}
	gs.Session = &session.Session{
		ID:    uuid.New(),
		NpcID: "elena",
		Deck:  []string{"probe"},
		Hand:  []string{"opener", "gossip"},
		Pool:  session.Pool{Initiative: 2, Doubt: 1},
		Turn:  3,
	}

	if err := s.SaveGameState(ctx, gs); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	loaded, err := s.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected save state, got nil")
	}
	if loaded.ID != gs.ID || loaded.Scenario != gs.Scenario {
		t.Errorf("identity mismatch: %s/%s", loaded.ID, loaded.Scenario)
	}
	if loaded.Session == nil || loaded.Session.Pool.Initiative != 2 {
		t.Errorf("session lost in round trip: %+v", loaded.Session)
	}
	if len(loaded.Session.Hand) != 2 {
		t.Errorf("expected 2 cards in hand, got %d", len(loaded.Session.Hand))
	}
	if loc, err := loaded.World.NPCLocation("elena"); err != nil || loc != "common_room" {
		t.Errorf("world lost in round trip: %q (%v)", loc, err)
	}
}

func TestRedisStorage_LoadMissing(t *testing.T) {
	s := setupTestRedis(t)

	gs, err := s.LoadGameState(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gs != nil {
		t.Error("expected nil for missing save state")
	}
}

func TestRedisStorage_Delete(t *testing.T) {
	s := setupTestRedis(t)
	ctx := context.Background()

	gs := state.NewSaveState("the_courier.json")
	if err := s.SaveGameState(ctx, gs); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := s.DeleteGameState(ctx, gs.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	loaded, err := s.LoadGameState(ctx, gs.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil after delete")
	}
}
