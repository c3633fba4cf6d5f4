// Package room implements the Room Engine named in spec.md §4.3: the
// single-writer actor that owns one holdem.Game, serializes every mutation
// through an event queue, drives the turn timer and inter-hand delay off
// a ticker, and persists the consequences of each hand through the
// Persistence Adapter. Structurally grounded on the teacher's table actor
// (apps/server/internal/table/table.go), rebuilt around JSON wire frames
// instead of the teacher's protobuf envelopes.
package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"holdem-lite/card"
	"holdem-lite/holdem"
	"holdem-lite/internal/persistence"
	"holdem-lite/internal/store"
	"holdem-lite/internal/wire"
)

const (
	turnTimeLimit     = 30 * time.Second
	timerTickInterval = 1 * time.Second
	interHandDelay    = 5 * time.Second
	offlineSeatTTL    = 60 * time.Second
)

var ErrRoomClosed = errors.New("room closed")

// Config mirrors the subset of a persisted RoomRecord the game engine
// needs to run a table.
type Config struct {
	MaxPlayers int
	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64
	MaxBuyIn   int64
}

// Sender delivers a frame to one connected user. The Gateway implements
// this; the Room never touches a websocket directly.
type Sender interface {
	SendToUser(userID uint64, frame wire.Frame)
}

type seatedPlayer struct {
	UserID   uint64
	Username string
	Chair    uint16
	Online   bool
	LastSeen time.Time
}

// EventType enumerates the messages the Room actor accepts.
type EventType int

const (
	EventJoin EventType = iota
	EventAttach
	EventLeave
	EventSpectate
	EventAction
	EventChat
	EventConnLost
	EventConnResumed
	EventStartHand
	EventClose
)

// Event is a single message delivered to the Room's run loop.
type Event struct {
	Type     EventType
	UserID   uint64
	Username string
	Amount   int64
	Action   holdem.ActionType
	Message  string
	Response chan error
}

// Room is the Room Engine actor for a single table.
type Room struct {
	ID     string
	cfg    Config
	send   Sender
	persist *persistence.Adapter

	mu         sync.Mutex
	game       *holdem.Game
	seats      map[uint16]uint64
	players    map[uint64]*seatedPlayer
	spectators map[uint64]bool
	// leaving holds chairs whose occupant left mid-hand and has already
	// been folded and cashed out; the engine seat itself stays reserved
	// (it still owes its wagered bet to the pot this street) until the
	// hand ends, when settleHandLocked stands it up for real.
	leaving map[uint16]bool

	round      uint64
	handID     string
	closed     bool
	stopOnce   sync.Once

	actionChair    uint16
	actionDeadline time.Time
	nextHandAt     time.Time
	emptySince     time.Time

	events chan Event
	done   chan struct{}
}

func New(id string, cfg Config, send Sender, persist *persistence.Adapter) (*Room, error) {
	game, err := holdem.NewGame(holdem.Config{
		MaxPlayers: cfg.MaxPlayers,
		MinPlayers: 2,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
	})
	if err != nil {
		return nil, err
	}
	r := &Room{
		ID:          id,
		cfg:         cfg,
		send:        send,
		persist:     persist,
		game:        game,
		seats:       make(map[uint16]uint64),
		players:     make(map[uint64]*seatedPlayer),
		spectators:  make(map[uint64]bool),
		leaving:     make(map[uint16]bool),
		actionChair: holdem.InvalidChair,
		emptySince:  time.Now(),
		events:      make(chan Event, 256),
		done:        make(chan struct{}),
	}
	go r.run()
	return r, nil
}

func (r *Room) run() {
	ticker := time.NewTicker(timerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-r.events:
			err := r.handleEvent(e)
			if e.Response != nil {
				e.Response <- err
			}
		case <-ticker.C:
			r.tick()
		case <-r.done:
			return
		}
	}
}

// Submit enqueues an event and blocks for its result — the only way
// callers (the Gateway, admin handlers) mutate Room state.
func (r *Room) Submit(e Event) error {
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}
	select {
	case r.events <- e:
	case <-r.done:
		return ErrRoomClosed
	}
	select {
	case err := <-e.Response:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) Close() {
	_ = r.Submit(Event{Type: EventClose})
}

func (r *Room) handleEvent(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed && e.Type != EventClose {
		return ErrRoomClosed
	}

	switch e.Type {
	case EventJoin:
		return r.handleJoinLocked(e.UserID, e.Username, e.Amount)
	case EventAttach:
		return r.handleAttachLocked(e.UserID, e.Username)
	case EventLeave:
		return r.handleLeaveLocked(e.UserID)
	case EventSpectate:
		return r.handleSpectateLocked(e.UserID)
	case EventAction:
		return r.handleActionLocked(e.UserID, e.Action, e.Amount)
	case EventChat:
		r.broadcastChatLocked(e.UserID, e.Username, e.Message)
		return nil
	case EventConnLost:
		return r.handleConnLostLocked(e.UserID)
	case EventConnResumed:
		return r.handleConnResumedLocked(e.UserID)
	case EventStartHand:
		return r.tryStartHandLocked(time.Now())
	case EventClose:
		r.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown room event type: %d", e.Type)
	}
}

// handleJoinLocked seats a player — spec.md §4.2's join_room contract.
// Buy-in and seat persistence happen atomically through the Persistence
// Adapter before the in-memory game engine is touched, so a crash
// mid-join never doubles or loses chips.
func (r *Room) handleJoinLocked(userID uint64, username string, buyIn int64) error {
	if _, seated := r.players[userID]; seated {
		return fmt.Errorf("already seated in this room")
	}
	if buyIn < r.cfg.MinBuyIn || buyIn > r.cfg.MaxBuyIn {
		return fmt.Errorf("buy-in %d outside allowed range %d-%d", buyIn, r.cfg.MinBuyIn, r.cfg.MaxBuyIn)
	}

	chair, ok := r.firstOpenChairLocked()
	if !ok {
		return fmt.Errorf("room is full")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seat, err := r.persist.BuyIn(ctx, r.ID, userID, chair, buyIn)
	if err != nil {
		return err
	}

	if err := r.game.SitDown(chair, userID, seat.Stack); err != nil {
		return err
	}

	now := time.Now()
	r.seats[chair] = userID
	r.players[userID] = &seatedPlayer{UserID: userID, Username: username, Chair: chair, Online: true, LastSeen: now}
	delete(r.spectators, userID)
	r.emptySince = time.Time{}

	r.send.SendToUser(userID, mustFrame(wire.TypeJoinedRoom, wire.JoinedRoomPayload{RoomID: r.ID, SeatNumber: chair, Stack: seat.Stack}))
	r.broadcastExcept(userID, mustFrame(wire.TypePlayerJoined, wire.PlayerJoinedPayload{UserID: userID, Username: username, SeatNumber: chair, Stack: seat.Stack}))
	r.broadcastGameStateLocked()

	return r.tryStartHandLocked(now)
}

func (r *Room) firstOpenChairLocked() (uint16, bool) {
	for c := uint16(0); c < uint16(r.cfg.MaxPlayers); c++ {
		if _, taken := r.seats[c]; !taken {
			return c, true
		}
	}
	return 0, false
}

// handleAttachLocked is spec.md §4.1's join_room over an already-open
// connection: it never moves chips, only finds the Seat the Lobby's
// buy-in endpoint already persisted. A connection that already holds a
// live seat just gets re-acked (the normal reconnect path); one with no
// persisted seat at all is rejected outright.
func (r *Room) handleAttachLocked(userID uint64, username string) error {
	if p := r.players[userID]; p != nil {
		p.Online = true
		p.LastSeen = time.Now()
		delete(r.spectators, userID)
		r.send.SendToUser(userID, mustFrame(wire.TypeJoinedRoom, wire.JoinedRoomPayload{
			RoomID: r.ID, SeatNumber: p.Chair, Stack: r.stackForChairLocked(p.Chair),
		}))
		r.send.SendToUser(userID, r.gameStateFrameFor(userID))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	seats, err := r.persist.ListSeatsByRoom(ctx, r.ID)
	if err != nil {
		return err
	}
	var seat *store.SeatRecord
	for i := range seats {
		if seats[i].UserID == userID {
			seat = &seats[i]
			break
		}
	}
	if seat == nil {
		return fmt.Errorf("must join via Lobby first")
	}

	if err := r.game.SitDown(seat.SeatNumber, userID, seat.Stack); err != nil {
		return err
	}

	now := time.Now()
	r.seats[seat.SeatNumber] = userID
	r.players[userID] = &seatedPlayer{UserID: userID, Username: username, Chair: seat.SeatNumber, Online: true, LastSeen: now}
	delete(r.spectators, userID)
	r.emptySince = time.Time{}

	r.send.SendToUser(userID, mustFrame(wire.TypeJoinedRoom, wire.JoinedRoomPayload{RoomID: r.ID, SeatNumber: seat.SeatNumber, Stack: seat.Stack}))
	r.broadcastExcept(userID, mustFrame(wire.TypePlayerJoined, wire.PlayerJoinedPayload{UserID: userID, Username: username, SeatNumber: seat.SeatNumber, Stack: seat.Stack}))
	r.broadcastGameStateLocked()

	return r.tryStartHandLocked(now)
}

func (r *Room) stackForChairLocked(chair uint16) int64 {
	if p := r.game.Player(chair); p != nil {
		return p.Stack()
	}
	return 0
}

// handleLeaveLocked cashes a player out — spec.md §4.2's leave_room. A
// leave between hands stands the seat up immediately; a leave mid-hand is
// treated as an immediate fold with the stack returned right away
// (spec.md §4.1/§5), deferring only the engine-internal seat removal
// until the hand it was dealt into actually ends.
func (r *Room) handleLeaveLocked(userID uint64) error {
	p := r.players[userID]
	if p == nil {
		delete(r.spectators, userID)
		return nil
	}
	chair := p.Chair

	snap := r.game.Snapshot()
	if snap.Round > 0 && !snap.Ended && snap.Phase != holdem.PhaseTypeRoundEnd {
		return r.leaveMidHandLocked(userID, chair)
	}
	return r.standUpAndCashOutLocked(userID, chair, "left")
}

// leaveMidHandLocked folds the leaving player out of the live hand right
// now and returns their stack, but cannot call holdem.Game.StandUp yet:
// the chair's already-wagered bet this street is only swept into the pot
// when the street or hand ends, so the engine seat has to stay reserved
// until settleHandLocked concludes the hand it was dealt into.
func (r *Room) leaveMidHandLocked(userID uint64, chair uint16) error {
	result, err := r.game.ForceFold(chair)
	if err != nil {
		return err
	}
	if r.actionChair == chair {
		r.clearActionTimeoutLocked()
	}

	stack := r.stackForChairLocked(chair)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.persist.UpsertSeat(ctx, r.ID, userID, chair, stack, "active"); err != nil {
		log.Printf("[room %s] pre-leave stack sync failed for user %d: %v", r.ID, userID, err)
	}
	txn, err := r.persist.CashOut(ctx, r.ID, userID)
	if err != nil {
		return err
	}

	r.leaving[chair] = true
	delete(r.players, userID)

	r.send.SendToUser(userID, mustFrame(wire.TypeLeftRoom, nil))
	r.broadcastExcept(userID, mustFrame(wire.TypePlayerLeft, wire.PlayerLeftPayload{UserID: userID, Reason: "left"}))
	log.Printf("[room %s] user %d folded and cashed out %d chips mid-hand", r.ID, userID, txn.Amount)

	if result != nil {
		r.settleHandLocked(result)
		return nil
	}

	r.broadcastGameStateLocked()
	after := r.game.Snapshot()
	if after.ActionChair != holdem.InvalidChair {
		r.setActionTimeoutLocked(after.ActionChair, time.Now())
	}
	return nil
}

// standUpAndCashOutLocked removes a seat outright and returns its full
// stack — the between-hands path for a voluntary leave, a sat-out
// reclamation, or a stale-connection release.
func (r *Room) standUpAndCashOutLocked(userID uint64, chair uint16, reason string) error {
	if err := r.game.StandUp(chair); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	txn, err := r.persist.CashOut(ctx, r.ID, userID)
	if err != nil {
		return err
	}

	delete(r.seats, chair)
	delete(r.players, userID)
	if len(r.seats) == 0 {
		r.emptySince = time.Now()
	}
	if len(r.seats) < 2 {
		r.nextHandAt = time.Time{}
	}

	r.send.SendToUser(userID, mustFrame(wire.TypeLeftRoom, nil))
	r.broadcastExcept(userID, mustFrame(wire.TypePlayerLeft, wire.PlayerLeftPayload{UserID: userID, Reason: reason}))
	log.Printf("[room %s] user %d cashed out %d chips", r.ID, userID, txn.Amount)
	return nil
}

func (r *Room) handleSpectateLocked(userID uint64) error {
	r.spectators[userID] = true
	r.send.SendToUser(userID, mustFrame(wire.TypeSpectating, wire.SpectatingPayload{RoomID: r.ID}))
	return nil
}

// handleActionLocked applies a player_action frame to the game engine and
// fans out the consequences — spec.md §4.1/§4.3.4.
func (r *Room) handleActionLocked(userID uint64, action holdem.ActionType, amount int64) error {
	p := r.players[userID]
	if p == nil || p.Chair == holdem.InvalidChair {
		return fmt.Errorf("player not seated")
	}

	before := r.game.Snapshot()
	if before.ActionChair != p.Chair {
		return fmt.Errorf("not your turn")
	}
	if action == holdem.PlayerActionTypeCall {
		amount = before.CurBet
	}

	result, err := r.game.Act(p.Chair, action, amount)
	if err != nil {
		return err
	}
	if r.actionChair == p.Chair {
		r.clearActionTimeoutLocked()
	}

	after := r.game.Snapshot()
	stack := int64(0)
	for _, ps := range after.Players {
		if ps.Chair == p.Chair {
			stack = ps.Stack
			break
		}
	}

	r.broadcastAll(mustFrame(wire.TypeActionResult, wire.ActionResultPayload{
		UserID: userID,
		Action: holdem.PlayerActionTypeDictionary[action],
		Amount: amount,
		Stack:  stack,
	}))

	if result != nil {
		r.settleHandLocked(result)
		return nil
	}

	r.broadcastGameStateLocked()
	if after.ActionChair != holdem.InvalidChair {
		r.setActionTimeoutLocked(after.ActionChair, time.Now())
	}
	return nil
}

const maxChatMessageLen = 200

func (r *Room) broadcastChatLocked(userID uint64, username, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if runes := []rune(message); len(runes) > maxChatMessageLen {
		message = string(runes[:maxChatMessageLen])
	}
	r.broadcastAll(mustFrame(wire.TypeChatMessage, wire.ChatBroadcastPayload{
		ID: uuid.NewString(), UserID: userID, Username: username, Message: message, Timestamp: time.Now().UnixMilli(),
	}))
}

func (r *Room) handleConnLostLocked(userID uint64) error {
	if p := r.players[userID]; p != nil {
		p.Online = false
		p.LastSeen = time.Now()
	}
	return nil
}

func (r *Room) handleConnResumedLocked(userID uint64) error {
	p := r.players[userID]
	if p == nil {
		return nil
	}
	p.Online = true
	p.LastSeen = time.Now()
	r.send.SendToUser(userID, r.gameStateFrameFor(userID))
	return nil
}

// tryStartHandLocked begins a new hand once there are at least two seated
// players and the previous hand (if any) has finished and the inter-hand
// delay has elapsed — spec.md §4.3.2/§4.3.7.
func (r *Room) tryStartHandLocked(now time.Time) error {
	if r.closed || len(r.seats) < 2 {
		return nil
	}
	if !r.nextHandAt.IsZero() && now.Before(r.nextHandAt) {
		return nil
	}
	snap := r.game.Snapshot()
	if snap.Round != 0 && !snap.Ended && snap.Phase != holdem.PhaseTypeRoundEnd {
		return nil
	}

	r.nextHandAt = time.Time{}
	r.clearActionTimeoutLocked()
	if err := r.game.StartHand(); err != nil {
		return err
	}
	r.round++
	r.handID = uuid.NewString()

	after := r.game.Snapshot()
	r.broadcastNewRoundLocked(after)
	if after.ActionChair != holdem.InvalidChair {
		r.setActionTimeoutLocked(after.ActionChair, now)
	}
	return nil
}

// settleHandLocked persists the hand's consequences (spec.md §4.3.7):
// update stacks, append a game_history row, record a win transaction per
// winner (winnings stay in the seat stack; the wallet is credited at
// cash-out), remove busted seats, then schedule the next hand after
// interHandDelay.
func (r *Room) settleHandLocked(result *holdem.SettlementResult) {
	r.clearActionTimeoutLocked()
	snap := r.game.Snapshot()

	winners := make([]wire.HandWinner, 0, len(result.PotResult.Winners))
	for i, chair := range result.PotResult.Winners {
		userID := r.seats[chair]
		amount := int64(0)
		if i < len(result.PotResult.WinAmounts) {
			amount = result.PotResult.WinAmounts[i]
		}
		winner := wire.HandWinner{UserID: userID, Username: r.usernameLocked(userID), Amount: amount}
		if pr := playerResultForChair(result, chair); pr != nil && pr.HandType > 0 {
			winner.Hand = &wire.HandInfo{
				Rank:        holdem.HandCategoryName(pr.HandType),
				Description: pr.Description,
				Cards:       cardsToStrings(pr.BestFiveCards),
			}
		}
		winners = append(winners, winner)
	}

	revealed := make(map[string][]string, len(result.PlayerResults))
	for _, pr := range result.PlayerResults {
		userID := r.seats[pr.Chair]
		if userID == 0 || len(pr.HandCards) != 2 {
			continue
		}
		revealed[strconv.FormatUint(userID, 10)] = cardsToStrings(pr.HandCards)
	}
	if len(revealed) == 0 {
		revealed = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	communityCards := cardsToStrings(snap.CommunityCards)
	var primaryWinner uint64
	if len(winners) > 0 {
		primaryWinner = winners[0].UserID
	}
	if err := r.persist.AppendGameHistory(ctx, r.ID, primaryWinner, result.PotResult.Amount, communityCards, nil); err != nil {
		log.Printf("[room %s] append game history failed: %v", r.ID, err)
	}

	bustedChairs := map[uint16]bool{}
	for _, ps := range snap.Players {
		if r.leaving[ps.Chair] {
			// Already cashed out and its seat row deleted when they left.
			continue
		}
		if err := r.persist.UpsertSeat(ctx, r.ID, ps.ID, ps.Chair, ps.Stack, "active"); err != nil {
			log.Printf("[room %s] upsert seat failed: %v", r.ID, err)
		}
		if ps.Stack <= 0 {
			bustedChairs[ps.Chair] = true
		}
	}
	for _, w := range winners {
		if w.UserID == 0 {
			continue
		}
		if err := r.persist.AppendTransaction(ctx, w.UserID, r.ID, store.TxnWin, w.Amount, 0, 0); err != nil {
			log.Printf("[room %s] append win transaction for %d failed: %v", r.ID, w.UserID, err)
		}
	}

	r.broadcastAll(mustFrame(wire.TypeHandResult, wire.HandResultPayload{
		Winners:        winners,
		Pot:            result.PotResult.Amount,
		RevealedHands:  revealed,
		CommunityCards: communityCards,
	}))

	for chair := range bustedChairs {
		userID := r.seats[chair]
		if userID == 0 {
			continue
		}
		if err := r.game.StandUp(chair); err != nil {
			log.Printf("[room %s] stand-up for busted chair %d failed: %v", r.ID, chair, err)
		}
		delete(r.seats, chair)
		delete(r.players, userID)
		if err := r.persist.DeleteSeat(ctx, r.ID, userID); err != nil {
			log.Printf("[room %s] delete busted seat failed: %v", r.ID, err)
		}
		r.send.SendToUser(userID, mustFrame(wire.TypePlayerLeft, wire.PlayerLeftPayload{UserID: userID, Reason: "busted"}))
	}

	// Anyone who left mid-hand was already folded and cashed out; the hand
	// is over now, so the engine will finally let the chair go.
	for chair := range r.leaving {
		if err := r.game.StandUp(chair); err != nil {
			log.Printf("[room %s] deferred stand-up for chair %d failed: %v", r.ID, chair, err)
			continue
		}
		delete(r.seats, chair)
		delete(r.leaving, chair)
	}
	if len(r.seats) == 0 {
		r.emptySince = time.Now()
	}

	if len(r.seats) >= 2 {
		r.nextHandAt = time.Now().Add(interHandDelay)
	} else {
		r.nextHandAt = time.Time{}
	}
}

// tick drives the turn timer, stale-seat reclamation, and inter-hand
// scheduling — spec.md §4.3.5's 30s deadline with 1s timer_update
// broadcasts, and §4.2's default 60s stale-seat reclamation.
func (r *Room) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	now := time.Now()
	r.broadcastTimerUpdateLocked(now)
	r.handleTurnTimeoutLocked(now)
	r.releaseStaleSeatsLocked(now)
	if !r.nextHandAt.IsZero() && !now.Before(r.nextHandAt) {
		if err := r.tryStartHandLocked(now); err != nil {
			log.Printf("[room %s] delayed hand start failed: %v", r.ID, err)
		}
	}
}

func (r *Room) broadcastTimerUpdateLocked(now time.Time) {
	if r.actionChair == holdem.InvalidChair || r.actionDeadline.IsZero() {
		return
	}
	userID := r.seats[r.actionChair]
	if userID == 0 {
		return
	}
	remaining := r.actionDeadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	r.broadcastAll(mustFrame(wire.TypeTimerUpdate, wire.TimerUpdatePayload{UserID: userID, RemainingMs: remaining.Milliseconds()}))
}

// handleTurnTimeoutLocked auto-acts for a player who missed their 30s
// deadline, then sits them out and refunds their remaining stack to
// their wallet — spec.md §4.3.5's timeout behavior.
func (r *Room) handleTurnTimeoutLocked(now time.Time) {
	if r.actionChair == holdem.InvalidChair || r.actionDeadline.IsZero() || now.Before(r.actionDeadline) {
		return
	}
	chair := r.actionChair
	userID := r.seats[chair]
	r.clearActionTimeoutLocked()
	if userID == 0 {
		return
	}

	snap := r.game.Snapshot()
	if snap.ActionChair != chair {
		return
	}
	action, amount, err := r.pickTimeoutActionLocked(chair, snap)
	if err != nil {
		log.Printf("[room %s] no legal timeout action for chair %d: %v", r.ID, chair, err)
		return
	}

	result, err := r.game.Act(chair, action, amount)
	if err != nil {
		log.Printf("[room %s] auto-action on timeout failed: %v", r.ID, err)
		return
	}

	r.broadcastAll(mustFrame(wire.TypeActionResult, wire.ActionResultPayload{
		UserID: userID, Action: holdem.PlayerActionTypeDictionary[action], Amount: amount,
	}))

	if result != nil {
		r.settleHandLocked(result)
	} else {
		after := r.game.Snapshot()
		r.broadcastGameStateLocked()
		if after.ActionChair != holdem.InvalidChair {
			r.setActionTimeoutLocked(after.ActionChair, now)
		}
	}

	r.sitOutAndRefundLocked(userID, "timeout")
}

func (r *Room) pickTimeoutActionLocked(chair uint16, snap holdem.Snapshot) (holdem.ActionType, int64, error) {
	actions, _, err := r.game.LegalActions(chair)
	if err != nil {
		return 0, 0, err
	}
	if containsAction(actions, holdem.PlayerActionTypeCheck) {
		return holdem.PlayerActionTypeCheck, 0, nil
	}
	if containsAction(actions, holdem.PlayerActionTypeFold) {
		return holdem.PlayerActionTypeFold, 0, nil
	}
	if len(actions) == 0 {
		return 0, 0, fmt.Errorf("no legal actions")
	}
	return actions[0], snap.CurBet, nil
}

// sitOutAndRefundLocked stands a timed-out player up between hands and
// refunds whatever remained of their stack at the time — it never
// touches a hand they are still live in, since handleTurnTimeoutLocked
// has already folded or checked them out of the current street.
func (r *Room) sitOutAndRefundLocked(userID uint64, reason string) {
	p := r.players[userID]
	if p == nil {
		return
	}
	chair := p.Chair
	snap := r.game.Snapshot()
	var stack int64
	for _, ps := range snap.Players {
		if ps.Chair == chair {
			stack = ps.Stack
			break
		}
	}
	if err := r.game.StandUp(chair); err != nil {
		// Hand still in progress for this seat; retry reclamation on a later tick.
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.persist.CashOut(ctx, r.ID, userID); err != nil {
		log.Printf("[room %s] sit-out cash-out failed for user %d: %v", r.ID, userID, err)
	}

	delete(r.seats, chair)
	delete(r.players, userID)
	if len(r.seats) < 2 {
		r.nextHandAt = time.Time{}
	}
	r.broadcastAll(mustFrame(wire.TypePlayerSatOut, wire.PlayerSatOutPayload{
		UserID: userID, Username: p.Username, Reason: reason, ChipsReturned: stack,
	}))
}

// releaseStaleSeatsLocked stands up a seat that has been disconnected for
// longer than offlineSeatTTL — spec.md §4.2's stale-seat reclamation.
func (r *Room) releaseStaleSeatsLocked(now time.Time) {
	for userID, p := range r.players {
		if p.Online || now.Sub(p.LastSeen) < offlineSeatTTL {
			continue
		}
		r.sitOutAndRefundLocked(userID, "disconnected")
	}
}

func (r *Room) setActionTimeoutLocked(chair uint16, now time.Time) {
	r.actionChair = chair
	r.actionDeadline = now.Add(turnTimeLimit)
}

func (r *Room) clearActionTimeoutLocked() {
	r.actionChair = holdem.InvalidChair
	r.actionDeadline = time.Time{}
}

func (r *Room) stopLocked() {
	r.closed = true
	r.stopOnce.Do(func() { close(r.done) })
}

func (r *Room) usernameLocked(userID uint64) string {
	if p := r.players[userID]; p != nil {
		return p.Username
	}
	return ""
}

func (r *Room) broadcastAll(frame wire.Frame) {
	for userID := range r.players {
		r.send.SendToUser(userID, frame)
	}
	for userID := range r.spectators {
		r.send.SendToUser(userID, frame)
	}
}

func (r *Room) broadcastExcept(skip uint64, frame wire.Frame) {
	for userID := range r.players {
		if userID == skip {
			continue
		}
		r.send.SendToUser(userID, frame)
	}
	for userID := range r.spectators {
		if userID == skip {
			continue
		}
		r.send.SendToUser(userID, frame)
	}
}

func (r *Room) broadcastNewRoundLocked(snap holdem.Snapshot) {
	for userID := range r.players {
		r.send.SendToUser(userID, mustFrame(wire.TypeNewRound, r.gameStatePayloadFor(snap, userID)))
	}
	for userID := range r.spectators {
		r.send.SendToUser(userID, mustFrame(wire.TypeNewRound, r.gameStatePayloadFor(snap, 0)))
	}
}

func (r *Room) broadcastGameStateLocked() {
	snap := r.game.Snapshot()
	for userID := range r.players {
		r.send.SendToUser(userID, mustFrame(wire.TypeGameState, r.gameStatePayloadFor(snap, userID)))
	}
	for userID := range r.spectators {
		r.send.SendToUser(userID, mustFrame(wire.TypeGameState, r.gameStatePayloadFor(snap, 0)))
	}
}

func (r *Room) gameStateFrameFor(userID uint64) wire.Frame {
	return mustFrame(wire.TypeGameState, r.gameStatePayloadFor(r.game.Snapshot(), userID))
}

// gameStatePayloadFor builds the public snapshot spec.md §6.2 defines for
// game_state/new_round, revealing hole cards only to the seat they belong
// to (viewerID == 0 means a spectator — no hole cards at all).
func (r *Room) gameStatePayloadFor(snap holdem.Snapshot, viewerID uint64) wire.GameStatePayload {
	players := make([]wire.PlayerPublicView, 0, len(snap.Players))
	for _, ps := range snap.Players {
		p := r.players[r.seats[ps.Chair]]
		username := ""
		online := false
		if p != nil {
			username = p.Username
			online = p.Online
		}
		players = append(players, wire.PlayerPublicView{
			UserID:       r.seats[ps.Chair],
			Username:     username,
			SeatNumber:   ps.Chair,
			Stack:        ps.Stack,
			CurrentBet:   ps.Bet,
			Folded:       ps.Folded,
			AllIn:        ps.AllIn,
			IsDealer:     ps.Chair == snap.DealerChair,
			IsSmallBlind: ps.Chair == snap.SmallBlindChair,
			IsBigBlind:   ps.Chair == snap.BigBlindChair,
			Connected:    online,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].SeatNumber < players[j].SeatNumber })

	payload := wire.GameStatePayload{
		RoomID:         r.ID,
		Phase:          holdem.PhaseTypeDictionary[snap.Phase],
		CommunityCards: cardsToStrings(snap.CommunityCards),
		Pot:            snap.PotAmount,
		CurrentBet:     snap.CurBet,
		MinRaise:       snap.MinRaiseDelta,
		Players:        players,
	}
	if snap.ActionChair != holdem.InvalidChair {
		payload.CurrentActorID = r.seats[snap.ActionChair]
		if !r.actionDeadline.IsZero() {
			payload.TurnDeadlineMs = r.actionDeadline.UnixMilli()
		}
	}
	if viewerID != 0 {
		if p := r.players[viewerID]; p != nil {
			for _, ps := range snap.Players {
				if ps.Chair == p.Chair {
					payload.YourCards = cardsToStrings(ps.HandCards)
					break
				}
			}
		}
	}
	return payload
}

func cardsToStrings(cards []card.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Code()
	}
	return out
}

func playerResultForChair(result *holdem.SettlementResult, chair uint16) *holdem.ShowdownPlayerResult {
	for i := range result.PlayerResults {
		if result.PlayerResults[i].Chair == chair {
			return &result.PlayerResults[i]
		}
	}
	return nil
}

func containsAction(actions []holdem.ActionType, target holdem.ActionType) bool {
	for _, a := range actions {
		if a == target {
			return true
		}
	}
	return false
}

func mustFrame(msgType string, payload any) wire.Frame {
	f, err := wire.NewFrame(msgType, payload)
	if err != nil {
		panic(err)
	}
	return f
}
