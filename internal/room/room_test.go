package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"holdem-lite/internal/persistence"
	"holdem-lite/internal/store"
	"holdem-lite/internal/wire"
)

type fakeSender struct {
	mu     sync.Mutex
	frames map[uint64][]wire.Frame
}

func newFakeSender() *fakeSender {
	return &fakeSender{frames: make(map[uint64][]wire.Frame)}
}

func (f *fakeSender) SendToUser(userID uint64, frame wire.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames[userID] = append(f.frames[userID], frame)
}

func (f *fakeSender) typesFor(userID uint64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames[userID]))
	for i, fr := range f.frames[userID] {
		out[i] = fr.Type
	}
	return out
}

func (f *fakeSender) hasType(userID uint64, msgType string) bool {
	for _, t := range f.typesFor(userID) {
		if t == msgType {
			return true
		}
	}
	return false
}

func createUser(t *testing.T, s *store.SQLiteStore, username string, balance int64) uint64 {
	t.Helper()
	u, err := s.CreateUser(context.Background(), store.UserRecord{Username: username, PasswordHash: "hash", Balance: balance})
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", username, err)
	}
	return u.ID
}

func newTestRoomWithStore(t *testing.T) (*Room, *fakeSender, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	persist := persistence.New(s)
	t.Cleanup(func() { _ = persist.Close() })

	sender := newFakeSender()
	r, err := New("room-under-test", Config{
		MaxPlayers: 6, SmallBlind: 50, BigBlind: 100, MinBuyIn: 1000, MaxBuyIn: 10000,
	}, sender, persist)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(r.Close)
	return r, sender, s
}

func TestRoomJoinSeatsPlayerAndBroadcastsState(t *testing.T) {
	r, sender, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !sender.hasType(alice, wire.TypeJoinedRoom) {
		t.Fatalf("expected joined_room frame for alice, got %v", sender.typesFor(alice))
	}
}

func TestRoomJoinRejectsDuplicateSeat(t *testing.T) {
	r, _, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err == nil {
		t.Fatalf("expected an error re-seating an already-seated player")
	}
}

func TestRoomJoinRejectsBuyInOutsideRange(t *testing.T) {
	r, _, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 50000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 500}); err == nil {
		t.Fatalf("expected an error for a buy-in below MinBuyIn")
	}
	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 50000}); err == nil {
		t.Fatalf("expected an error for a buy-in above MaxBuyIn")
	}
}

func TestRoomSecondJoinStartsHand(t *testing.T) {
	r, sender, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)
	bob := createUser(t, s, "bob", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := r.Submit(Event{Type: EventJoin, UserID: bob, Username: "bob", Amount: 2000}); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	if !sender.hasType(alice, wire.TypeNewRound) {
		t.Fatalf("expected a new_round frame once two players are seated, got %v", sender.typesFor(alice))
	}
	if !sender.hasType(bob, wire.TypeNewRound) {
		t.Fatalf("expected a new_round frame once two players are seated, got %v", sender.typesFor(bob))
	}
}

func TestRoomLeaveUnseatedUserIsANoOp(t *testing.T) {
	r, _, _ := newTestRoomWithStore(t)
	if err := r.Submit(Event{Type: EventLeave, UserID: 999}); err != nil {
		t.Fatalf("expected leaving while unseated to be a no-op, got %v", err)
	}
}

func TestRoomActionByWrongPlayerIsRejected(t *testing.T) {
	r, _, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)
	bob := createUser(t, s, "bob", 5000)
	carol := createUser(t, s, "carol", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := r.Submit(Event{Type: EventJoin, UserID: bob, Username: "bob", Amount: 2000}); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	// carol never sat down, so she can never be the action chair.
	if err := r.Submit(Event{Type: EventAction, UserID: carol, Action: 99, Amount: 0}); err == nil {
		t.Fatalf("expected an error acting for an unseated player")
	}
}

func TestRoomLeaveMidHandFoldsAndCashesOutImmediately(t *testing.T) {
	r, sender, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)
	bob := createUser(t, s, "bob", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := r.Submit(Event{Type: EventJoin, UserID: bob, Username: "bob", Amount: 2000}); err != nil {
		t.Fatalf("bob join failed: %v", err)
	}
	// Heads-up: the second join above already started a hand.

	if err := r.Submit(Event{Type: EventLeave, UserID: bob}); err != nil {
		t.Fatalf("expected a mid-hand leave to succeed as an immediate fold, got %v", err)
	}

	if !sender.hasType(bob, wire.TypeLeftRoom) {
		t.Fatalf("expected bob to receive left_room, got %v", sender.typesFor(bob))
	}

	user, err := s.GetUserByID(context.Background(), bob)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if user.Balance <= 5000-2000 {
		t.Fatalf("expected bob's stack to be returned to his wallet, balance=%d", user.Balance)
	}

	if _, err := s.GetSeat(context.Background(), r.ID, bob); err == nil {
		t.Fatalf("expected bob's seat row to be gone after a mid-hand leave")
	}
}

func TestRoomAttachReseatsAnAlreadyJoinedPlayer(t *testing.T) {
	r, sender, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	if err := r.Submit(Event{Type: EventAttach, UserID: alice, Username: "alice"}); err != nil {
		t.Fatalf("expected attach to succeed for an already-seated player, got %v", err)
	}
	if !sender.hasType(alice, wire.TypeJoinedRoom) {
		t.Fatalf("expected a joined_room ack from attach, got %v", sender.typesFor(alice))
	}
}

func TestRoomAttachWithoutALobbyJoinIsRejected(t *testing.T) {
	r, _, _ := newTestRoomWithStore(t)
	if err := r.Submit(Event{Type: EventAttach, UserID: 4242, Username: "ghost"}); err == nil {
		t.Fatalf("expected attach without a persisted seat to fail")
	}
}

func TestRoomChatMessageIsTrimmedAndTruncated(t *testing.T) {
	r, sender, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)
	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != nil {
		t.Fatalf("alice join failed: %v", err)
	}

	long := ""
	for i := 0; i < 250; i++ {
		long += "x"
	}
	if err := r.Submit(Event{Type: EventChat, UserID: alice, Username: "alice", Message: "  " + long + "  "}); err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	frames := sender.typesFor(alice)
	found := false
	for _, msgType := range frames {
		if msgType == wire.TypeChatMessage {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a chat_message broadcast, got %v", frames)
	}

	var raw []byte
	sender.mu.Lock()
	for _, fr := range sender.frames[alice] {
		if fr.Type == wire.TypeChatMessage {
			raw = fr.Payload
		}
	}
	sender.mu.Unlock()
	var payload wire.ChatBroadcastPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode chat_message payload: %v", err)
	}
	if payload.Message != long[:maxChatMessageLen] {
		t.Fatalf("expected the message trimmed and cut to %d chars, got %d chars", maxChatMessageLen, len(payload.Message))
	}
}

func TestRoomCloseStopsAcceptingEvents(t *testing.T) {
	r, _, s := newTestRoomWithStore(t)
	alice := createUser(t, s, "alice", 5000)

	r.Close()
	// Close drains asynchronously via the run loop's done channel; give it
	// a moment before asserting the room now refuses new events.
	time.Sleep(20 * time.Millisecond)

	if err := r.Submit(Event{Type: EventJoin, UserID: alice, Username: "alice", Amount: 2000}); err != ErrRoomClosed {
		t.Fatalf("expected ErrRoomClosed after Close, got %v", err)
	}
}
