package registry

import (
	"context"
	"testing"

	"holdem-lite/internal/persistence"
	"holdem-lite/internal/room"
	"holdem-lite/internal/store"
	"holdem-lite/internal/wire"
)

type noopSender struct{}

func (noopSender) SendToUser(userID uint64, frame wire.Frame) {}

func newTestRegistry(t *testing.T) (*Registry, *persistence.Adapter) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	persist := persistence.New(s)
	t.Cleanup(func() { _ = persist.Close() })
	return New(persist, noopSender{}), persist
}

func createRoomRecord(t *testing.T, persist *persistence.Adapter, id, status string) {
	t.Helper()
	_, err := persist.CreateRoom(context.Background(), store.RoomRecord{
		ID: id, Name: id, SmallBlind: 50, BigBlind: 100,
		MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6, Status: status, CreatedBy: 1,
	})
	if err != nil {
		t.Fatalf("CreateRoom(%s) failed: %v", id, err)
	}
}

func TestRegistryStartRoomCreatesRoomFromRecord(t *testing.T) {
	reg, persist := newTestRegistry(t)
	createRoomRecord(t, persist, "room-a", "waiting")

	r, err := reg.StartRoom(context.Background(), "room-a")
	if err != nil {
		t.Fatalf("StartRoom failed: %v", err)
	}
	if r == nil {
		t.Fatalf("expected a non-nil room")
	}

	got, ok := reg.Get("room-a")
	if !ok || got != r {
		t.Fatalf("expected Get to return the just-started room")
	}
}

func TestRegistryStartRoomFailsForUnknownRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if _, err := reg.StartRoom(context.Background(), "does-not-exist"); err == nil {
		t.Fatalf("expected an error starting a room with no persisted record")
	}
}

func TestRegistryGetOrCreateReusesLiveRoom(t *testing.T) {
	reg, persist := newTestRegistry(t)
	createRoomRecord(t, persist, "room-b", "waiting")

	first, err := reg.GetOrCreate(context.Background(), "room-b")
	if err != nil {
		t.Fatalf("first GetOrCreate failed: %v", err)
	}
	second, err := reg.GetOrCreate(context.Background(), "room-b")
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected GetOrCreate to return the same live room instance")
	}
}

func TestRegistryRemoveClosesAndForgetsRoom(t *testing.T) {
	reg, persist := newTestRegistry(t)
	createRoomRecord(t, persist, "room-c", "waiting")

	r, err := reg.StartRoom(context.Background(), "room-c")
	if err != nil {
		t.Fatalf("StartRoom failed: %v", err)
	}
	reg.Remove("room-c")

	if _, ok := reg.Get("room-c"); ok {
		t.Fatalf("expected the room to be forgotten after Remove")
	}
	if err := r.Submit(room.Event{Type: room.EventLeave, UserID: 1}); err != room.ErrRoomClosed {
		t.Fatalf("expected the removed room to be closed, got %v", err)
	}
}

func TestRegistryRehydrateAllStartsOnlyOpenRooms(t *testing.T) {
	reg, persist := newTestRegistry(t)
	createRoomRecord(t, persist, "room-open", "waiting")
	createRoomRecord(t, persist, "room-closed", "closed")

	if err := reg.RehydrateAll(context.Background()); err != nil {
		t.Fatalf("RehydrateAll failed: %v", err)
	}

	if _, ok := reg.Get("room-open"); !ok {
		t.Fatalf("expected the open room to be rehydrated")
	}
	if _, ok := reg.Get("room-closed"); ok {
		t.Fatalf("expected the closed room to be skipped by rehydration")
	}
}
