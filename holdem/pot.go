package holdem

// potManager tracks the hand's single shared pot.
//
// This deliberately does not implement side-pot tiering: a short-stacked
// all-in player is still only eligible for the pot if they haven't folded,
// but with unequal stacks across more than two players this over-pays a
// short all-in against the full field rather than capping their win at the
// matched portion of each opponent's stack. That is the documented,
// spec-mandated deviation from correct multi-way side-pot accounting.
type potManager struct {
	amount          int64
	eligiblePlayers map[uint16]bool

	// excessChair/excessAmount record a same-street refund of an uncalled
	// bet: when the largest bet on the street has no second bet to match
	// it, the unmatched portion never enters the pot and goes straight
	// back to its owner's stack.
	excessChair  uint16
	excessAmount int64
}

func (pm *potManager) resetPots() {
	pm.amount = 0
	pm.eligiblePlayers = make(map[uint16]bool)
	pm.excessChair = 0
	pm.excessAmount = 0
}

// calcPotsByPlayerBets folds every player's current-street bet into the
// pot, refunding any uncalled excess on the largest bet first.
func (pm *potManager) calcPotsByPlayerBets(playersWithBets []*Player) {
	if pm.eligiblePlayers == nil {
		pm.eligiblePlayers = make(map[uint16]bool)
	}

	var maxBet, secondMaxBet int64
	var maxPlayer *Player
	for _, p := range playersWithBets {
		if p.Bet() > maxBet {
			secondMaxBet = maxBet
			maxBet = p.Bet()
			maxPlayer = p
		} else if p.Bet() > secondMaxBet {
			secondMaxBet = p.Bet()
		}
	}

	pm.excessChair = 0
	pm.excessAmount = 0
	if maxPlayer != nil {
		if excess := maxBet - secondMaxBet; excess > 0 && len(playersWithBets) > 1 {
			maxPlayer.addStack(excess)
			maxPlayer.addBet(-excess)
			pm.excessChair = maxPlayer.ChairID()
			pm.excessAmount = excess
		}
	}

	for _, p := range playersWithBets {
		pm.amount += p.Bet()
		if !p.Folded() {
			pm.eligiblePlayers[p.ChairID()] = true
		}
	}
}
