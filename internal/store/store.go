// Package store implements the external Store spec.md §1 and §6.4 name by
// interface only: the durable record sets (users, rooms, table_players,
// transactions, game_history) behind the Persistence Adapter. Two real
// backends are provided — SQLite for local/dev/test, Postgres for
// production — selected by cmd/server at startup from DATABASE_DRIVER.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

type UserRecord struct {
	ID           uint64
	Email        string
	Username     string
	PasswordHash string
	Balance      int64
	IsAdmin      bool
	CreatedAt    time.Time
}

type RoomRecord struct {
	ID         string
	Name       string
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
	MaxPlayers int
	Status     string // waiting | playing | closed
	CreatedBy  uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SeatRecord struct {
	RoomID     string
	UserID     uint64
	SeatNumber uint16
	Stack      int64
	Status     string // waiting | active | folded | all-in | sitting-out
	CreatedAt  time.Time
}

const (
	TxnBuyIn   = "buy_in"
	TxnCashOut = "cash_out"
	TxnWin     = "win"
)

type TransactionRecord struct {
	ID             int64
	UserID         uint64
	RoomID         string // empty if not room-scoped
	Type           string
	Amount         int64 // signed
	BalanceBefore  int64
	BalanceAfter   int64
	CreatedAt      time.Time
}

type GameHistoryRecord struct {
	ID             int64
	RoomID         string
	WinnerID       uint64
	Pot            int64
	CommunityCards []string
	HandData       []byte
	CreatedAt      time.Time
}

// Store is the full persistence surface. The Persistence Adapter
// (internal/persistence) wraps the subset of these that the Room Engine,
// Room Registry and Lobby call; none of them uses a Store directly.
type Store interface {
	CreateUser(ctx context.Context, u UserRecord) (UserRecord, error)
	GetUserByID(ctx context.Context, id uint64) (UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)

	CreateRoom(ctx context.Context, r RoomRecord) (RoomRecord, error)
	GetRoom(ctx context.Context, id string) (RoomRecord, error)
	UpdateRoomStatus(ctx context.Context, id string, status string) error
	DeleteRoom(ctx context.Context, id string) error
	ListRooms(ctx context.Context) ([]RoomRecord, error)
	CountSeats(ctx context.Context, roomID string) (int, error)

	GetSeat(ctx context.Context, roomID string, userID uint64) (SeatRecord, error)
	ListSeatsByRoom(ctx context.Context, roomID string) ([]SeatRecord, error)
	ListSeatsByUser(ctx context.Context, userID uint64) ([]SeatRecord, error)
	UpsertSeat(ctx context.Context, s SeatRecord) error
	DeleteSeat(ctx context.Context, roomID string, userID uint64) error

	// BuyIn and CashOut are the two balance-transferring operations
	// spec.md §4.5 requires to be atomic: wallet and seat mutate together.
	BuyIn(ctx context.Context, roomID string, userID uint64, seatNumber uint16, amount int64) (SeatRecord, error)
	CashOut(ctx context.Context, roomID string, userID uint64) (TransactionRecord, error)

	AdjustWalletBalance(ctx context.Context, userID uint64, delta int64) (int64, error)
	AppendTransaction(ctx context.Context, t TransactionRecord) (TransactionRecord, error)
	AppendGameHistory(ctx context.Context, h GameHistoryRecord) (GameHistoryRecord, error)

	Close() error
}
