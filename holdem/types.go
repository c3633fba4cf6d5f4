package holdem

import "holdem-lite/card"

const InvalidChair uint16 = 65535

// Phase is a betting street. Transitions are index+1 except for the
// fold-to-one short-circuit, which jumps straight to PhaseTypeRoundEnd, and
// the all-in shortcut, which deals out the board and jumps straight to
// PhaseTypeShowdown.
type Phase byte

const (
	PhaseTypeIdle     Phase = 0
	PhaseTypePreflop  Phase = 1
	PhaseTypeFlop     Phase = 2
	PhaseTypeTurn     Phase = 3
	PhaseTypeRiver    Phase = 4
	PhaseTypeShowdown Phase = 5
	PhaseTypeRoundEnd Phase = 6
)

var PhaseTypeDictionary = map[Phase]string{
	PhaseTypeIdle:     "idle",
	PhaseTypePreflop:  "preflop",
	PhaseTypeFlop:     "flop",
	PhaseTypeTurn:     "turn",
	PhaseTypeRiver:    "river",
	PhaseTypeShowdown: "showdown",
	PhaseTypeRoundEnd: "roundend",
}

// ActionType enumerates the five player actions the wire protocol exposes.
// Opening a pot and raising an existing bet are both represented as Raise;
// the caller distinguishes them implicitly through the current table bet.
type ActionType byte

const (
	PlayerActionTypeNone  ActionType = 0
	PlayerActionTypeCheck ActionType = 1
	PlayerActionTypeCall  ActionType = 2
	PlayerActionTypeRaise ActionType = 3
	PlayerActionTypeFold  ActionType = 4
	PlayerActionTypeAllin ActionType = 5
)

var PlayerActionTypeDictionary = map[ActionType]string{
	PlayerActionTypeNone:  "none",
	PlayerActionTypeCheck: "check",
	PlayerActionTypeCall:  "call",
	PlayerActionTypeRaise: "raise",
	PlayerActionTypeFold:  "fold",
	PlayerActionTypeAllin: "all-in",
}

// Hand category constants, ordered weakest to strongest. These drive both
// the evaluator's score encoding and the human-readable description the
// Hand Evaluator reports alongside a showdown.
const (
	HandHighCard      byte = iota + 1
	HandOnePair
	HandTwoPair
	HandThreeOfKind
	HandStraight
	HandFlush
	HandFullHouse
	HandFourOfKind
	HandStraightFlush
	HandRoyalFlush
)

var HoldemCards = []card.Card{
	card.CardSpadeA, card.CardSpade2, card.CardSpade3, card.CardSpade4, card.CardSpade5, card.CardSpade6,
	card.CardSpade7, card.CardSpade8, card.CardSpade9, card.CardSpadeT, card.CardSpadeJ, card.CardSpadeQ, card.CardSpadeK,
	card.CardHeartA, card.CardHeart2, card.CardHeart3, card.CardHeart4, card.CardHeart5, card.CardHeart6,
	card.CardHeart7, card.CardHeart8, card.CardHeart9, card.CardHeartT, card.CardHeartJ, card.CardHeartQ, card.CardHeartK,
	card.CardClubA, card.CardClub2, card.CardClub3, card.CardClub4, card.CardClub5, card.CardClub6,
	card.CardClub7, card.CardClub8, card.CardClub9, card.CardClubT, card.CardClubJ, card.CardClubQ, card.CardClubK,
	card.CardDiamondA, card.CardDiamond2, card.CardDiamond3, card.CardDiamond4, card.CardDiamond5, card.CardDiamond6,
	card.CardDiamond7, card.CardDiamond8, card.CardDiamond9, card.CardDiamondT, card.CardDiamondJ, card.CardDiamondQ, card.CardDiamondK,
}
