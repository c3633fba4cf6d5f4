package holdem

import (
	"fmt"

	"holdem-lite/card"
)

// HandCategoryName returns the machine-readable category spec.md §4.4 names
// for a hand type — the Hand Evaluator's "category".
func HandCategoryName(handType byte) string {
	switch handType {
	case HandHighCard:
		return "high-card"
	case HandOnePair:
		return "pair"
	case HandTwoPair:
		return "two-pair"
	case HandThreeOfKind:
		return "three-of-a-kind"
	case HandStraight:
		return "straight"
	case HandFlush:
		return "flush"
	case HandFullHouse:
		return "full-house"
	case HandFourOfKind:
		return "four-of-a-kind"
	case HandStraightFlush:
		return "straight-flush"
	case HandRoyalFlush:
		return "royal-flush"
	default:
		return "unknown"
	}
}

// describeHand renders the short human description spec.md §4.4 requires
// (e.g. "Full House, Kings full of 5s") from a hand's best five cards.
func describeHand(handType byte, bestFive []card.Card) string {
	if len(bestFive) != 5 {
		return ""
	}
	ranks := make([]byte, 5)
	for i, c := range bestFive {
		ranks[i] = byte(c.HandRealVal())
	}
	groups := groupByCount(countRanks(ranks))

	switch handType {
	case HandRoyalFlush:
		return "Royal Flush"
	case HandStraightFlush:
		high, _ := straightHighCard(ranks)
		return fmt.Sprintf("Straight Flush, %s High", rankSingular(high))
	case HandFourOfKind:
		return fmt.Sprintf("Four of a Kind, %s", rankPlural(groups[0].rank))
	case HandFullHouse:
		return fmt.Sprintf("Full House, %s full of %s", rankPlural(groups[0].rank), rankPlural(groups[1].rank))
	case HandFlush:
		sorted := sortedDesc(ranks)
		return fmt.Sprintf("Flush, %s High", rankSingular(sorted[0]))
	case HandStraight:
		high, _ := straightHighCard(ranks)
		return fmt.Sprintf("Straight, %s High", rankSingular(high))
	case HandThreeOfKind:
		return fmt.Sprintf("Three of a Kind, %s", rankPlural(groups[0].rank))
	case HandTwoPair:
		hi, lo := groups[0].rank, groups[1].rank
		if lo > hi {
			hi, lo = lo, hi
		}
		return fmt.Sprintf("Two Pair, %s and %s", rankPlural(hi), rankPlural(lo))
	case HandOnePair:
		return fmt.Sprintf("Pair of %s", rankPlural(groups[0].rank))
	default:
		sorted := sortedDesc(ranks)
		return fmt.Sprintf("High Card, %s", rankSingular(sorted[0]))
	}
}

func countRanks(ranks []byte) map[byte]int {
	counts := make(map[byte]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	return counts
}

// rankSingular renders a rank (2-14) for "X High" phrasing.
func rankSingular(rank byte) string {
	switch rank {
	case 14:
		return "Ace"
	case 13:
		return "King"
	case 12:
		return "Queen"
	case 11:
		return "Jack"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

// rankPlural renders a rank (2-14) for "pair of X"/"full of X" phrasing.
func rankPlural(rank byte) string {
	switch rank {
	case 14:
		return "Aces"
	case 13:
		return "Kings"
	case 12:
		return "Queens"
	case 11:
		return "Jacks"
	default:
		return fmt.Sprintf("%ds", rank)
	}
}
