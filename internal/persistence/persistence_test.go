package persistence

import (
	"context"
	"testing"

	"holdem-lite/internal/store"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	a := New(s)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAdapterRoomLifecycle(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	created, err := a.CreateRoom(ctx, store.RoomRecord{
		ID: "room-1", Name: "Main", SmallBlind: 50, BigBlind: 100,
		MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6, Status: "waiting", CreatedBy: 1,
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if created.ID != "room-1" {
		t.Fatalf("unexpected room id: %s", created.ID)
	}

	rooms, err := a.ListOpenRoomsWithSeats(ctx)
	if err != nil {
		t.Fatalf("ListOpenRoomsWithSeats failed: %v", err)
	}
	if len(rooms) != 1 || rooms[0].SeatCount != 0 {
		t.Fatalf("unexpected open rooms: %+v", rooms)
	}

	if err := a.UpdateRoomStatus(ctx, "room-1", "closed"); err != nil {
		t.Fatalf("UpdateRoomStatus failed: %v", err)
	}
	rooms, err = a.ListOpenRoomsWithSeats(ctx)
	if err != nil {
		t.Fatalf("ListOpenRoomsWithSeats after close failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("expected a closed room to be excluded, got %+v", rooms)
	}

	if err := a.DeleteRoom(ctx, "room-1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := a.GetRoom(ctx, "room-1"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestAdapterSeatAndWalletOperations(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.UpsertSeat(ctx, "room-2", 42, 3, 5000, "active"); err != nil {
		t.Fatalf("UpsertSeat failed: %v", err)
	}
	seats, err := a.ListSeatsByRoom(ctx, "room-2")
	if err != nil {
		t.Fatalf("ListSeatsByRoom failed: %v", err)
	}
	if len(seats) != 1 || seats[0].UserID != 42 || seats[0].Stack != 5000 {
		t.Fatalf("unexpected seats: %+v", seats)
	}

	if err := a.DeleteSeat(ctx, "room-2", 42); err != nil {
		t.Fatalf("DeleteSeat failed: %v", err)
	}
	seats, err = a.ListSeatsByRoom(ctx, "room-2")
	if err != nil {
		t.Fatalf("ListSeatsByRoom after delete failed: %v", err)
	}
	if len(seats) != 0 {
		t.Fatalf("expected no seats after delete, got %+v", seats)
	}

	user, err := a.CreateUser(ctx, store.UserRecord{Username: "hank", PasswordHash: "hash", Balance: 1000})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	balance, err := a.AdjustWalletBalance(ctx, user.ID, -400)
	if err != nil {
		t.Fatalf("AdjustWalletBalance failed: %v", err)
	}
	if balance != 600 {
		t.Fatalf("expected wallet balance 600 after a -400 adjustment, got %d", balance)
	}
}

func TestAdapterAppendTransactionAndGameHistory(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.AppendTransaction(ctx, 1, "room-3", store.TxnWin, 500, 1000, 1500); err != nil {
		t.Fatalf("AppendTransaction failed: %v", err)
	}
	if err := a.AppendGameHistory(ctx, "room-3", 1, 1500, []string{"Ah", "Kd", "2c"}, []byte(`{}`)); err != nil {
		t.Fatalf("AppendGameHistory failed: %v", err)
	}
}

func TestAdapterBuyInAndCashOutAreAtomicWithWallet(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	user, err := a.store.CreateUser(ctx, store.UserRecord{Username: "gail", PasswordHash: "hash", Balance: 10000})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := a.CreateRoom(ctx, store.RoomRecord{ID: "room-4", Name: "T", SmallBlind: 50, BigBlind: 100, MinBuyIn: 1000, MaxBuyIn: 10000, MaxPlayers: 6, Status: "waiting", CreatedBy: user.ID}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	seat, err := a.BuyIn(ctx, "room-4", user.ID, 0, 3000)
	if err != nil {
		t.Fatalf("BuyIn failed: %v", err)
	}
	if seat.Stack != 3000 {
		t.Fatalf("expected seat stack 3000, got %d", seat.Stack)
	}

	balance, err := a.AdjustWalletBalance(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("AdjustWalletBalance failed: %v", err)
	}
	if balance != 7000 {
		t.Fatalf("expected wallet balance 7000 after buy-in, got %d", balance)
	}

	txn, err := a.CashOut(ctx, "room-4", user.ID)
	if err != nil {
		t.Fatalf("CashOut failed: %v", err)
	}
	if txn.Amount != 3000 {
		t.Fatalf("expected cash-out amount 3000, got %d", txn.Amount)
	}
}
