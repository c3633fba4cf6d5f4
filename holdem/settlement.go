package holdem

import (
	"sort"

	"holdem-lite/card"
)

type ShowdownPlayerResult struct {
	Chair             uint16
	HandType          byte
	HandScore         uint32
	Description       string // e.g. "Full House, Kings full of 5s" — spec.md §4.4.
	HandCards         []card.Card // the player's 2 hole cards
	BestFiveCards     []card.Card // best 5 of their 7 cards
	AllCards          []card.Card // hole + community, 7 cards
	IsWinner          bool
	WinAmount         int64
	BestFiveCardIndex [5]int
}

type PotResult struct {
	Amount     int64
	Winners    []uint16
	WinAmounts []int64
	// Discarded is the remainder lost to integer-division rounding when the
	// pot doesn't split evenly among tied winners (spec §9 open question,
	// resolved as a documented limitation rather than full side-pot math).
	Discarded int64
}

type SettlementResult struct {
	PlayerResults []ShowdownPlayerResult
	PotResult     PotResult
	ExcessChair   uint16
	ExcessAmount  int64
}

// SettleShowdown distributes the pot once a hand has reached a terminal
// state, either because every player but one folded or because the river
// betting round closed.
func (g *Game) SettleShowdown() (*SettlementResult, error) {
	if g.noShowDown {
		return g.settleNoShowdown()
	}
	return g.settleByEval()
}

func (g *Game) settleByEval() (*SettlementResult, error) {
	results := make(map[uint16]*ShowdownPlayerResult, 8)
	for chair, p := range g.playersByChair {
		if p == nil || p.folded || len(p.HandCards()) != 2 {
			continue
		}
		all := make(card.CardList, 0, 7)
		all = append(all, p.HandCards()...)
		all = append(all, g.communityCards...)
		if len(all) != 7 {
			return nil, ErrInvalidState("need 7 cards to evaluate")
		}
		eval := EvalBestOf7(all)
		if eval == nil {
			return nil, ErrInvalidState("eval failed")
		}
		p.setEvalResult(eval)
		bestFive := make([]card.Card, 0, 5)
		for _, i := range eval.BestIndex {
			bestFive = append(bestFive, all[i])
		}
		results[chair] = &ShowdownPlayerResult{
			Chair:             chair,
			HandType:          eval.HandType,
			HandScore:         eval.Score,
			Description:       eval.Description,
			HandCards:         append([]card.Card{}, p.HandCards()...),
			BestFiveCards:     bestFive,
			AllCards:          append([]card.Card{}, all...),
			BestFiveCardIndex: eval.BestIndex,
		}
	}

	var topScore uint32
	winners := make([]uint16, 0, len(results))
	for chair, r := range results {
		if r.HandScore > topScore {
			topScore = r.HandScore
			winners = winners[:0]
			winners = append(winners, chair)
		} else if r.HandScore == topScore {
			winners = append(winners, chair)
		}
	}
	sort.Slice(winners, func(i, j int) bool { return winners[i] < winners[j] })

	pr := PotResult{Amount: g.potManager.amount, Winners: winners}
	if len(winners) > 0 && pr.Amount > 0 {
		share := pr.Amount / int64(len(winners))
		pr.Discarded = pr.Amount % int64(len(winners))
		for _, w := range winners {
			pr.WinAmounts = append(pr.WinAmounts, share)
			if p := g.playersByChair[w]; p != nil {
				p.addStack(share)
			}
			if r := results[w]; r != nil {
				r.IsWinner = true
				r.WinAmount = share
			}
		}
	}

	out := &SettlementResult{
		PotResult:    pr,
		ExcessChair:  g.potManager.excessChair,
		ExcessAmount: g.potManager.excessAmount,
	}
	for _, r := range results {
		out.PlayerResults = append(out.PlayerResults, *r)
	}
	sort.Slice(out.PlayerResults, func(i, j int) bool { return out.PlayerResults[i].Chair < out.PlayerResults[j].Chair })
	return out, nil
}

// settleNoShowdown awards the pot when a fold leaves a single non-folded
// player. It runs before the current street's bets have been swept into
// potManager (a fold can end the hand mid-street), so it must account for
// bets still sitting on Player.bet as well as any pot carried from
// earlier streets, including refunding an uncalled excess on the winner's
// own bet.
func (g *Game) settleNoShowdown() (*SettlementResult, error) {
	var winner *Player
	for _, p := range g.playersByChair {
		if p != nil && !p.folded && len(p.HandCards()) == 2 {
			winner = p
			break
		}
	}
	if winner == nil {
		return nil, ErrInvalidState("no winner in no-showdown state")
	}

	var secondMax int64
	for _, p := range g.playersByChair {
		if p == nil || p == winner {
			continue
		}
		if p.Bet() > secondMax {
			secondMax = p.Bet()
		}
	}

	// Only a bet the winner themself raised to can go "uncalled" — a
	// shorter forced blind from a folding opponent is not a call the
	// winner was owed, so it never triggers a refund.
	excess := int64(0)
	if g.CurrentRaiser == winner.ChairID() && winner.Bet() > secondMax {
		excess = winner.Bet() - secondMax
		winner.addStack(excess)
		winner.addBet(-excess)
	}

	total := g.potManager.amount
	for _, p := range g.playersByChair {
		if p != nil {
			total += p.Bet()
			p.resetBet()
		}
	}
	winner.addStack(total)

	out := &SettlementResult{
		PlayerResults: []ShowdownPlayerResult{
			{Chair: winner.ChairID(), IsWinner: true, WinAmount: total},
		},
		PotResult: PotResult{
			Amount:     total,
			Winners:    []uint16{winner.ChairID()},
			WinAmounts: []int64{total},
		},
		ExcessChair:  winner.ChairID(),
		ExcessAmount: excess,
	}
	return out, nil
}
