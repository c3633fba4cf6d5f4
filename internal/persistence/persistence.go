// Package persistence implements the Persistence Adapter named in spec.md
// §4.5: a thin, room-facing wrapper around internal/store.Store. It
// exposes the six named operations the Room Engine and Room Registry call,
// plus the atomic BuyIn/CashOut transfers and the user, room and seat calls
// the Room Engine, Registry and Lobby also use, so none of them has to know
// about SQL, transactions, or which backend is wired in.
package persistence

import (
	"context"

	"holdem-lite/internal/store"
)

// Adapter is the Persistence Adapter. It is safe for concurrent use by
// multiple Room actors.
type Adapter struct {
	store store.Store
}

func New(s store.Store) *Adapter {
	return &Adapter{store: s}
}

func (a *Adapter) Close() error {
	return a.store.Close()
}

// UpsertSeat persists a player's seat assignment and stack, e.g. after a
// buy-in or after a hand changes a stack.
func (a *Adapter) UpsertSeat(ctx context.Context, roomID string, userID uint64, seatNumber uint16, stack int64, status string) error {
	return a.store.UpsertSeat(ctx, store.SeatRecord{
		RoomID:     roomID,
		UserID:     userID,
		SeatNumber: seatNumber,
		Stack:      stack,
		Status:     status,
	})
}

// DeleteSeat removes a seat, e.g. on leave or bust-out.
func (a *Adapter) DeleteSeat(ctx context.Context, roomID string, userID uint64) error {
	return a.store.DeleteSeat(ctx, roomID, userID)
}

// AdjustWalletBalance applies delta (positive or negative) to a user's
// wallet and returns the resulting balance.
func (a *Adapter) AdjustWalletBalance(ctx context.Context, userID uint64, delta int64) (int64, error) {
	return a.store.AdjustWalletBalance(ctx, userID, delta)
}

// AppendTransaction records a ledger entry (buy-in, cash-out, or hand win).
func (a *Adapter) AppendTransaction(ctx context.Context, userID uint64, roomID, txnType string, amount, balanceBefore, balanceAfter int64) error {
	_, err := a.store.AppendTransaction(ctx, store.TransactionRecord{
		UserID:        userID,
		RoomID:        roomID,
		Type:          txnType,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
	})
	return err
}

// AppendGameHistory records a completed hand's outcome for spec.md §4.3.7.
func (a *Adapter) AppendGameHistory(ctx context.Context, roomID string, winnerID uint64, pot int64, communityCards []string, handData []byte) error {
	_, err := a.store.AppendGameHistory(ctx, store.GameHistoryRecord{
		RoomID:         roomID,
		WinnerID:       winnerID,
		Pot:            pot,
		CommunityCards: communityCards,
		HandData:       handData,
	})
	return err
}

// OpenRoom is a room summary plus its current seat count, as returned to
// the Lobby's GET /rooms handler.
type OpenRoom struct {
	Room      store.RoomRecord
	SeatCount int
}

// ListOpenRoomsWithSeats lists every room that is not closed, alongside
// how many seats are currently occupied — spec.md §4.5's sixth operation.
func (a *Adapter) ListOpenRoomsWithSeats(ctx context.Context) ([]OpenRoom, error) {
	rooms, err := a.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OpenRoom, 0, len(rooms))
	for _, r := range rooms {
		if r.Status == "closed" {
			continue
		}
		n, err := a.store.CountSeats(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, OpenRoom{Room: r, SeatCount: n})
	}
	return out, nil
}

// BuyIn and CashOut pass straight through to the Store's atomic wallet+seat
// transaction — the Room Engine never mutates wallet and seat state in two
// separate calls.
func (a *Adapter) BuyIn(ctx context.Context, roomID string, userID uint64, seatNumber uint16, amount int64) (store.SeatRecord, error) {
	return a.store.BuyIn(ctx, roomID, userID, seatNumber, amount)
}

func (a *Adapter) CashOut(ctx context.Context, roomID string, userID uint64) (store.TransactionRecord, error) {
	return a.store.CashOut(ctx, roomID, userID)
}

// CreateUser opens the Store-backed wallet for a newly registered
// identity. The Lobby calls this with the Auth service's own account id
// so a user's identity and wallet share one id end to end.
func (a *Adapter) CreateUser(ctx context.Context, u store.UserRecord) (store.UserRecord, error) {
	return a.store.CreateUser(ctx, u)
}

func (a *Adapter) GetRoom(ctx context.Context, id string) (store.RoomRecord, error) {
	return a.store.GetRoom(ctx, id)
}

func (a *Adapter) CreateRoom(ctx context.Context, r store.RoomRecord) (store.RoomRecord, error) {
	return a.store.CreateRoom(ctx, r)
}

func (a *Adapter) UpdateRoomStatus(ctx context.Context, id, status string) error {
	return a.store.UpdateRoomStatus(ctx, id, status)
}

func (a *Adapter) DeleteRoom(ctx context.Context, id string) error {
	return a.store.DeleteRoom(ctx, id)
}

func (a *Adapter) ListSeatsByRoom(ctx context.Context, roomID string) ([]store.SeatRecord, error) {
	return a.store.ListSeatsByRoom(ctx, roomID)
}
