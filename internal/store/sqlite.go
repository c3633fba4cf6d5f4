package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "holdem_lite.db"

type SQLiteStore struct {
	db *sql.DB
}

func SQLiteDSNFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_DSN")); v != "" {
		return v
	}
	return defaultLocalDBName
}

func NewSQLiteStoreFromEnv() (*SQLiteStore, error) {
	return NewSQLiteStore(SQLiteDSNFromEnv())
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL DEFAULT '',
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	balance INTEGER NOT NULL DEFAULT 0,
	is_admin INTEGER NOT NULL DEFAULT 0,
	created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	small_blind INTEGER NOT NULL,
	big_blind INTEGER NOT NULL,
	min_buy_in INTEGER NOT NULL,
	max_buy_in INTEGER NOT NULL,
	max_players INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_by INTEGER NOT NULL,
	created_at_ms INTEGER NOT NULL,
	updated_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS table_players (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	seat_number INTEGER NOT NULL,
	stack INTEGER NOT NULL,
	status TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL,
	UNIQUE(room_id, seat_number),
	UNIQUE(room_id, user_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	room_id TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	amount INTEGER NOT NULL,
	balance_before INTEGER NOT NULL,
	balance_after INTEGER NOT NULL,
	created_at_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL,
	winner_id INTEGER NOT NULL,
	pot INTEGER NOT NULL,
	community_cards TEXT NOT NULL,
	hand_data TEXT NOT NULL,
	created_at_ms INTEGER NOT NULL
);
`)
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

// CreateUser inserts a new wallet row. When u.ID is already set — the
// Lobby passes the Auth service's own account id so a user's identity and
// their wallet share one id end to end — it is inserted explicitly instead
// of letting SQLite assign one.
func (s *SQLiteStore) CreateUser(ctx context.Context, u UserRecord) (UserRecord, error) {
	nowMs := time.Now().UTC().UnixMilli()
	if u.ID != 0 {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, username, password_hash, balance, is_admin, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`, u.ID, u.Email, u.Username, u.PasswordHash, u.Balance, boolToInt(u.IsAdmin), nowMs)
		if err != nil {
			if isUniqueViolation(err) {
				return UserRecord{}, ErrAlreadyExists
			}
			return UserRecord{}, err
		}
		u.CreatedAt = time.UnixMilli(nowMs)
		return u, nil
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (email, username, password_hash, balance, is_admin, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`, u.Email, u.Username, u.PasswordHash, u.Balance, boolToInt(u.IsAdmin), nowMs)
	if err != nil {
		if isUniqueViolation(err) {
			return UserRecord{}, ErrAlreadyExists
		}
		return UserRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return UserRecord{}, err
	}
	u.ID = uint64(id)
	u.CreatedAt = time.UnixMilli(nowMs)
	return u, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id uint64) (UserRecord, error) {
	return s.scanUser(ctx, `SELECT id, email, username, password_hash, balance, is_admin, created_at_ms FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (UserRecord, error) {
	return s.scanUser(ctx, `SELECT id, email, username, password_hash, balance, is_admin, created_at_ms FROM users WHERE username = ?`, username)
}

func (s *SQLiteStore) scanUser(ctx context.Context, query string, arg any) (UserRecord, error) {
	var u UserRecord
	var isAdmin int
	var createdAtMs int64
	row := s.db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Balance, &isAdmin, &createdAtMs); err != nil {
		if err == sql.ErrNoRows {
			return UserRecord{}, ErrNotFound
		}
		return UserRecord{}, err
	}
	u.IsAdmin = isAdmin != 0
	u.CreatedAt = time.UnixMilli(createdAtMs)
	return u, nil
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, r RoomRecord) (RoomRecord, error) {
	nowMs := time.Now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rooms (id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players, status, created_by, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.SmallBlind, r.BigBlind, r.MinBuyIn, r.MaxBuyIn, r.MaxPlayers, r.Status, r.CreatedBy, nowMs, nowMs)
	if err != nil {
		if isUniqueViolation(err) {
			return RoomRecord{}, ErrAlreadyExists
		}
		return RoomRecord{}, err
	}
	r.CreatedAt = time.UnixMilli(nowMs)
	r.UpdatedAt = r.CreatedAt
	return r, nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (RoomRecord, error) {
	var r RoomRecord
	var createdAtMs, updatedAtMs int64
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players, status, created_by, created_at_ms, updated_at_ms
FROM rooms WHERE id = ?`, id)
	if err := row.Scan(&r.ID, &r.Name, &r.SmallBlind, &r.BigBlind, &r.MinBuyIn, &r.MaxBuyIn, &r.MaxPlayers, &r.Status, &r.CreatedBy, &createdAtMs, &updatedAtMs); err != nil {
		if err == sql.ErrNoRows {
			return RoomRecord{}, ErrNotFound
		}
		return RoomRecord{}, err
	}
	r.CreatedAt = time.UnixMilli(createdAtMs)
	r.UpdatedAt = time.UnixMilli(updatedAtMs)
	return r, nil
}

func (s *SQLiteStore) UpdateRoomStatus(ctx context.Context, id string, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rooms SET status = ?, updated_at_ms = ? WHERE id = ?`, status, time.Now().UTC().UnixMilli(), id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (s *SQLiteStore) DeleteRoom(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players, status, created_by, created_at_ms, updated_at_ms
FROM rooms ORDER BY created_at_ms ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoomRecord
	for rows.Next() {
		var r RoomRecord
		var createdAtMs, updatedAtMs int64
		if err := rows.Scan(&r.ID, &r.Name, &r.SmallBlind, &r.BigBlind, &r.MinBuyIn, &r.MaxBuyIn, &r.MaxPlayers, &r.Status, &r.CreatedBy, &createdAtMs, &updatedAtMs); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(createdAtMs)
		r.UpdatedAt = time.UnixMilli(updatedAtMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountSeats(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM table_players WHERE room_id = ?`, roomID).Scan(&n)
	return n, err
}

func (s *SQLiteStore) GetSeat(ctx context.Context, roomID string, userID uint64) (SeatRecord, error) {
	var sr SeatRecord
	var createdAtMs int64
	row := s.db.QueryRowContext(ctx, `
SELECT room_id, user_id, seat_number, stack, status, created_at_ms
FROM table_players WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err := row.Scan(&sr.RoomID, &sr.UserID, &sr.SeatNumber, &sr.Stack, &sr.Status, &createdAtMs); err != nil {
		if err == sql.ErrNoRows {
			return SeatRecord{}, ErrNotFound
		}
		return SeatRecord{}, err
	}
	sr.CreatedAt = time.UnixMilli(createdAtMs)
	return sr, nil
}

func (s *SQLiteStore) ListSeatsByRoom(ctx context.Context, roomID string) ([]SeatRecord, error) {
	return s.listSeats(ctx, `
SELECT room_id, user_id, seat_number, stack, status, created_at_ms
FROM table_players WHERE room_id = ? ORDER BY seat_number ASC`, roomID)
}

func (s *SQLiteStore) ListSeatsByUser(ctx context.Context, userID uint64) ([]SeatRecord, error) {
	return s.listSeats(ctx, `
SELECT room_id, user_id, seat_number, stack, status, created_at_ms
FROM table_players WHERE user_id = ?`, userID)
}

func (s *SQLiteStore) listSeats(ctx context.Context, query string, arg any) ([]SeatRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SeatRecord
	for rows.Next() {
		var sr SeatRecord
		var createdAtMs int64
		if err := rows.Scan(&sr.RoomID, &sr.UserID, &sr.SeatNumber, &sr.Stack, &sr.Status, &createdAtMs); err != nil {
			return nil, err
		}
		sr.CreatedAt = time.UnixMilli(createdAtMs)
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertSeat(ctx context.Context, seat SeatRecord) error {
	nowMs := time.Now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO table_players (room_id, user_id, seat_number, stack, status, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (room_id, user_id) DO UPDATE SET seat_number = excluded.seat_number, stack = excluded.stack, status = excluded.status`,
		seat.RoomID, seat.UserID, seat.SeatNumber, seat.Stack, seat.Status, nowMs)
	return err
}

func (s *SQLiteStore) DeleteSeat(ctx context.Context, roomID string, userID uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM table_players WHERE room_id = ? AND user_id = ?`, roomID, userID)
	return err
}

// BuyIn atomically deducts the buy-in from the user's wallet, inserts
// their seat (ErrAlreadyExists, with nothing changed, if the user already
// has a seat row in the room), and appends a buy_in transaction — spec.md §4.5's
// requirement that a crash cannot leave chips doubled or lost.
func (s *SQLiteStore) BuyIn(ctx context.Context, roomID string, userID uint64, seatNumber uint16, amount int64) (SeatRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeatRecord{}, err
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return SeatRecord{}, ErrNotFound
		}
		return SeatRecord{}, err
	}
	if balance < amount {
		return SeatRecord{}, fmt.Errorf("insufficient balance")
	}
	newBalance := balance - amount
	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`, newBalance, userID); err != nil {
		return SeatRecord{}, err
	}

	nowMs := time.Now().UTC().UnixMilli()
	seat := SeatRecord{RoomID: roomID, UserID: userID, SeatNumber: seatNumber, Stack: amount, Status: "active"}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO table_players (room_id, user_id, seat_number, stack, status, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`, seat.RoomID, seat.UserID, seat.SeatNumber, seat.Stack, seat.Status, nowMs); err != nil {
		if isUniqueViolation(err) {
			return SeatRecord{}, ErrAlreadyExists
		}
		return SeatRecord{}, err
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO transactions (user_id, room_id, type, amount, balance_before, balance_after, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`, userID, roomID, TxnBuyIn, -amount, balance, newBalance, nowMs); err != nil {
		return SeatRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return SeatRecord{}, err
	}
	seat.CreatedAt = time.UnixMilli(nowMs)
	return seat, nil
}

// CashOut atomically deletes the seat and credits its stack back to the
// user's wallet.
func (s *SQLiteStore) CashOut(ctx context.Context, roomID string, userID uint64) (TransactionRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TransactionRecord{}, err
	}
	defer tx.Rollback()

	var stack int64
	if err := tx.QueryRowContext(ctx, `SELECT stack FROM table_players WHERE room_id = ? AND user_id = ?`, roomID, userID).Scan(&stack); err != nil {
		if err == sql.ErrNoRows {
			return TransactionRecord{}, ErrNotFound
		}
		return TransactionRecord{}, err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return TransactionRecord{}, err
	}
	newBalance := balance + stack

	if _, err := tx.ExecContext(ctx, `DELETE FROM table_players WHERE room_id = ? AND user_id = ?`, roomID, userID); err != nil {
		return TransactionRecord{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`, newBalance, userID); err != nil {
		return TransactionRecord{}, err
	}

	nowMs := time.Now().UTC().UnixMilli()
	res, err := tx.ExecContext(ctx, `
INSERT INTO transactions (user_id, room_id, type, amount, balance_before, balance_after, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`, userID, roomID, TxnCashOut, stack, balance, newBalance, nowMs)
	if err != nil {
		return TransactionRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TransactionRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return TransactionRecord{}, err
	}
	return TransactionRecord{
		ID: id, UserID: userID, RoomID: roomID, Type: TxnCashOut,
		Amount: stack, BalanceBefore: balance, BalanceAfter: newBalance, CreatedAt: time.UnixMilli(nowMs),
	}, nil
}

func (s *SQLiteStore) AdjustWalletBalance(ctx context.Context, userID uint64, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	newBalance := balance + delta
	if newBalance < 0 {
		return 0, fmt.Errorf("insufficient balance")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET balance = ? WHERE id = ?`, newBalance, userID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *SQLiteStore) AppendTransaction(ctx context.Context, t TransactionRecord) (TransactionRecord, error) {
	nowMs := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO transactions (user_id, room_id, type, amount, balance_before, balance_after, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)`, t.UserID, t.RoomID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter, nowMs)
	if err != nil {
		return TransactionRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TransactionRecord{}, err
	}
	t.ID = id
	t.CreatedAt = time.UnixMilli(nowMs)
	return t, nil
}

func (s *SQLiteStore) AppendGameHistory(ctx context.Context, h GameHistoryRecord) (GameHistoryRecord, error) {
	cardsJSON, err := json.Marshal(h.CommunityCards)
	if err != nil {
		return GameHistoryRecord{}, err
	}
	nowMs := time.Now().UTC().UnixMilli()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO game_history (room_id, winner_id, pot, community_cards, hand_data, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`, h.RoomID, h.WinnerID, h.Pot, string(cardsJSON), string(h.HandData), nowMs)
	if err != nil {
		return GameHistoryRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return GameHistoryRecord{}, err
	}
	h.ID = id
	h.CreatedAt = time.UnixMilli(nowMs)
	return h, nil
}

func requireRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
