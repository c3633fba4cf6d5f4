package replay

import (
	"fmt"
	"sort"
	"strconv"

	"holdem-lite/holdem"
	"holdem-lite/internal/wire"
)

const defaultTableID = "replay_local"

// GenerateReplayTape drives a scripted HandSpec through the same engine
// a live Room uses and records every frame a Session Gateway connection
// addressed to the hero's seat would have received, in order. It exists
// to make spec.md §8's "replaying recorded game_history yields identical
// winners and final stacks" property mechanically checkable: feed it a
// forced deck and a forced action sequence, and diff the resulting tape.
func GenerateReplayTape(spec HandSpec) (*ReplayTape, error) {
	ns, err := normalizeSpec(spec)
	if err != nil {
		return nil, err
	}

	game, err := holdem.NewGame(holdem.Config{
		MaxPlayers:        int(ns.table.MaxPlayers),
		MinPlayers:        2,
		SmallBlind:        ns.table.SB,
		BigBlind:          ns.table.BB,
		ForcedDealerChair: &ns.dealerChair,
		DeckOverride:      ns.deck,
	})
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}

	for _, seat := range ns.seats {
		if err := game.SitDown(seat.chair, seat.userID, seat.stack); err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: "seat_init_failed", Message: err.Error()}
		}
	}

	builder := newTapeBuilder(defaultTableID, ns.heroChair)

	if err := game.StartHand(); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "start_hand_failed", Message: err.Error()}
	}
	afterStart := game.Snapshot()
	ns.handStartStack = make(map[uint16]int64, len(afterStart.Players))
	for _, ps := range afterStart.Players {
		ns.handStartStack[ps.Chair] = ps.Stack
	}
	builder.addGameState(afterStart, ns, wire.TypeNewRound)

	for stepIdx, action := range ns.actions {
		before := game.Snapshot()
		if before.ActionChair == holdem.InvalidChair {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "no_action_expected",
				Message:   "hand is already complete; no further actions are allowed",
			}
		}
		if before.Phase != action.phase {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "phase_mismatch",
				Message:   fmt.Sprintf("expected phase %s, got %s", phaseName(before.Phase), phaseName(action.phase)),
				Expected: &ExpectedState{
					ActionChair: before.ActionChair,
					Phase:       phaseName(before.Phase),
				},
			}
		}
		if before.ActionChair != action.chair {
			expected := expectedStateForChair(game, before.ActionChair)
			expected.Phase = phaseName(before.Phase)
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "out_of_turn",
				Message:   fmt.Sprintf("expected action chair %d, got %d", before.ActionChair, action.chair),
				Expected:  expected,
			}
		}
		if !isLegalAction(game, action.chair, action.action) {
			expected := expectedStateForChair(game, action.chair)
			expected.Phase = phaseName(before.Phase)
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "illegal_action",
				Message:   fmt.Sprintf("action %s is not legal for chair %d", actionName(action.action), action.chair),
				Expected:  expected,
			}
		}

		result, err := game.Act(action.chair, action.action, action.amountTo)
		if err != nil {
			expected := expectedStateForChair(game, action.chair)
			expected.Phase = phaseName(before.Phase)
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "action_apply_failed",
				Message:   err.Error(),
				Expected:  expected,
			}
		}

		after := game.Snapshot()
		builder.addActionResult(ns, action.chair, action.action, after)

		if result != nil {
			builder.addHandResult(result, after, ns)
			break
		}
		builder.addGameState(after, ns, wire.TypeGameState)
	}

	return &ReplayTape{
		TapeVersion: 1,
		TableID:     builder.tableID,
		HeroChair:   ns.heroChair,
		Events:      builder.events,
	}, nil
}

func isLegalAction(g *holdem.Game, chair uint16, action holdem.ActionType) bool {
	actions, _, err := g.LegalActions(chair)
	if err != nil {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func expectedStateForChair(g *holdem.Game, chair uint16) *ExpectedState {
	actions, minRaiseTo, err := g.LegalActions(chair)
	if err != nil {
		return &ExpectedState{ActionChair: chair}
	}
	snap := g.Snapshot()
	callAmount := int64(0)
	for _, ps := range snap.Players {
		if ps.Chair == chair {
			callAmount = snap.CurBet - ps.Bet
			if callAmount < 0 {
				callAmount = 0
			}
			break
		}
	}
	legal := make([]string, 0, len(actions))
	for _, a := range actions {
		legal = append(legal, actionName(a))
	}
	return &ExpectedState{
		ActionChair:  chair,
		LegalActions: legal,
		MinRaiseTo:   minRaiseTo,
		CallAmount:   callAmount,
	}
}

// tapeBuilder accumulates the same wire.Frame values a live Gateway
// connection would receive, addressed to the hero's seat.
type tapeBuilder struct {
	tableID string
	hero    uint16
	seq     uint64
	events  []ReplayEvent
}

func newTapeBuilder(tableID string, hero uint16) *tapeBuilder {
	return &tapeBuilder{tableID: tableID, hero: hero, events: make([]ReplayEvent, 0, 32)}
}

func (b *tapeBuilder) push(msgType string, payload any) {
	f, err := wire.NewFrame(msgType, payload)
	if err != nil {
		return
	}
	b.seq++
	b.events = append(b.events, ReplayEvent{Type: msgType, Seq: b.seq, Frame: f})
}

func (b *tapeBuilder) addGameState(snap holdem.Snapshot, ns normalizedSpec, msgType string) {
	b.push(msgType, gameStatePayload(snap, ns, b.hero))
}

func (b *tapeBuilder) addActionResult(ns normalizedSpec, chair uint16, action holdem.ActionType, after holdem.Snapshot) {
	var stack, amount int64
	for _, ps := range after.Players {
		if ps.Chair == chair {
			stack = ps.Stack
			amount = ps.Bet
			break
		}
	}
	seat := ns.seatByChair[chair]
	b.push(wire.TypeActionResult, wire.ActionResultPayload{
		UserID: seat.userID,
		Action: actionName(action),
		Amount: amount,
		Stack:  stack,
	})
}

func (b *tapeBuilder) addHandResult(result *holdem.SettlementResult, finalSnap holdem.Snapshot, ns normalizedSpec) {
	winners := make([]wire.HandWinner, 0, len(result.PotResult.Winners))
	for i, chair := range result.PotResult.Winners {
		seat := ns.seatByChair[chair]
		amount := int64(0)
		if i < len(result.PotResult.WinAmounts) {
			amount = result.PotResult.WinAmounts[i]
		}
		winner := wire.HandWinner{UserID: seat.userID, Username: seat.name, Amount: amount}
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
		if len(pr.HandCards) == 2 {
			seat := ns.seatByChair[pr.Chair]
			revealed[strconv.FormatUint(seat.userID, 10)] = cardsToStrings(pr.HandCards)
		}
	}
	if len(revealed) == 0 {
		revealed = nil
	}

	b.push(wire.TypeHandResult, wire.HandResultPayload{
		Winners:        winners,
		Pot:            result.PotResult.Amount,
		RevealedHands:  revealed,
		CommunityCards: cardsToStrings(finalSnap.CommunityCards),
	})
}

func gameStatePayload(snap holdem.Snapshot, ns normalizedSpec, heroChair uint16) wire.GameStatePayload {
	players := make([]wire.PlayerPublicView, 0, len(snap.Players))
	for _, ps := range snap.Players {
		seat := ns.seatByChair[ps.Chair]
		players = append(players, wire.PlayerPublicView{
			UserID:       seat.userID,
			Username:     seat.name,
			SeatNumber:   ps.Chair,
			Stack:        ps.Stack,
			CurrentBet:   ps.Bet,
			Folded:       ps.Folded,
			AllIn:        ps.AllIn,
			IsDealer:     ps.Chair == snap.DealerChair,
			IsSmallBlind: ps.Chair == snap.SmallBlindChair,
			IsBigBlind:   ps.Chair == snap.BigBlindChair,
			Connected:    true,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].SeatNumber < players[j].SeatNumber })

	payload := wire.GameStatePayload{
		RoomID:         defaultTableID,
		Phase:          phaseName(snap.Phase),
		CommunityCards: cardsToStrings(snap.CommunityCards),
		Pot:            snap.PotAmount,
		CurrentBet:     snap.CurBet,
		MinRaise:       snap.MinRaiseDelta,
		Players:        players,
	}
	if snap.ActionChair != holdem.InvalidChair {
		payload.CurrentActorID = ns.seatByChair[snap.ActionChair].userID
	}
	if heroCards := heroHoleCards(snap, heroChair); len(heroCards) == 2 {
		payload.YourCards = cardsToStrings(heroCards)
	}
	return payload
}
