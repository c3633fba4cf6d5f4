package holdem

import "holdem-lite/card"

// Player is one seated, in-hand participant. Between hands only ID, Chair
// and stack are meaningful; the rest resets at StartHand.
type Player struct {
	ID    uint64
	Chair uint16

	stack int64
	bet   int64

	allIn      bool
	folded     bool
	lastAction ActionType

	handCards card.CardList
	evalRes   *bestHandResult
}

func (p *Player) ChairID() uint16 { return p.Chair }

func (p *Player) Stack() int64 { return p.stack }
func (p *Player) Bet() int64   { return p.bet }
func (p *Player) AllIn() bool  { return p.allIn }
func (p *Player) Folded() bool { return p.folded }
func (p *Player) Hand() []card.Card {
	return p.handCards
}

func (p *Player) ResetForNewHand() {
	p.bet = 0
	p.allIn = false
	p.folded = false
	p.lastAction = PlayerActionTypeNone
	p.handCards = make([]card.Card, 0, 2)
	p.evalRes = nil
}

func (p *Player) AddHandCard(cards ...card.Card) {
	p.handCards = append(p.handCards, cards...)
}

func (p *Player) SetHandCard(cards card.CardList) {
	p.handCards = cards
}

func (p *Player) HandCards() card.CardList { return p.handCards }

func (p *Player) setLastAction(a ActionType) { p.lastAction = a }

func (p *Player) placeBet(amount int64) {
	if amount <= 0 {
		return
	}
	if p.stack <= amount {
		p.allIn = true
		amount = p.stack
	}
	p.stack -= amount
	p.bet += amount
}

func (p *Player) addBet(amount int64) {
	p.bet += amount
}

func (p *Player) resetBet() {
	p.bet = 0
}

func (p *Player) addStack(amount int64) {
	p.stack += amount
}

func (p *Player) setFolded(v bool) { p.folded = v }

func (p *Player) setEvalResult(r *bestHandResult) { p.evalRes = r }
func (p *Player) getEvalResult() *bestHandResult  { return p.evalRes }

// PlayerNode is one seat in the per-hand action ring. The ring is rebuilt
// from scratch at the start of every hand from the set of players with
// stack > 0, in chair order.
type PlayerNode struct {
	Player  *Player
	ChairID uint16
	Next    *PlayerNode
}

// WalkOnce walks the ring starting at n (inclusive), returning the first
// node for which fn reports true, or nil if the ring has no such node.
func (n *PlayerNode) WalkOnce(fn func(*PlayerNode) bool) *PlayerNode {
	if n == nil {
		return nil
	}
	cur := n
	for {
		if fn(cur) {
			return cur
		}
		cur = cur.Next
		if cur == nil || cur == n {
			break
		}
	}
	return nil
}

// WalkAll walks the ring exactly once, in order, calling fn on every node.
func (n *PlayerNode) WalkAll(fn func(cur *PlayerNode)) {
	n.WalkOnce(func(cur *PlayerNode) bool {
		fn(cur)
		return false
	})
}
