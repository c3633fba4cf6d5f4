package holdem

import "holdem-lite/card"

// bestHandResult is the outcome of evaluating the best 5-card hand out of a
// larger set of cards.
type bestHandResult struct {
	Score       uint32 // Larger is stronger; total order across all 5-card hands.
	HandType    byte
	BestIndex   [5]int // Indices of the best 5 cards within the input slice.
	Description string // Human-readable text, e.g. "Full House, Kings full of 5s".
}

// EvalBestOf7 evaluates the best 5-card hand from 7 cards (2 hole + 5
// community) by enumerating every C(7,5)=21 subset and keeping the highest
// score. No pre-built lookup table is required: eval5 derives the category
// and tiebreak kickers directly from rank/suit counts, so evaluation stays
// correct without depending on a generated table that isn't part of this
// module's source material.
func EvalBestOf7(cards card.CardList) *bestHandResult {
	if len(cards) != 7 {
		return nil
	}

	var best *bestHandResult
	idx := [5]int{}

	for a := 0; a < 3; a++ {
		for b := a + 1; b < 4; b++ {
			for c := b + 1; c < 5; c++ {
				for d := c + 1; d < 6; d++ {
					for e := d + 1; e < 7; e++ {
						idx[0], idx[1], idx[2], idx[3], idx[4] = a, b, c, d, e
						score, handType := eval5(cards[a], cards[b], cards[c], cards[d], cards[e])
						if best == nil || score > best.Score {
							best = &bestHandResult{Score: score, HandType: handType, BestIndex: idx}
						}
					}
				}
			}
		}
	}
	if best != nil {
		five := [5]card.Card{
			cards[best.BestIndex[0]], cards[best.BestIndex[1]], cards[best.BestIndex[2]],
			cards[best.BestIndex[3]], cards[best.BestIndex[4]],
		}
		best.Description = describeHand(best.HandType, five[:])
	}
	return best
}

// eval5 scores a single 5-card hand. The score packs the hand category into
// the top bits and up to five descending-significance kickers into the
// remaining bits, so comparing scores as plain integers reproduces standard
// Hold'em hand ordering, including kicker tiebreaks within a category.
func eval5(a, b, c, d, e card.Card) (score uint32, handType byte) {
	cards := [5]card.Card{a, b, c, d, e}

	counts := make(map[byte]int, 5)
	flush := true
	suit0 := cards[0].Suit()
	ranks := make([]byte, 0, 5)
	for _, cc := range cards {
		r := byte(cc.HandRealVal())
		ranks = append(ranks, r)
		counts[r]++
		if cc.Suit() != suit0 {
			flush = false
		}
	}

	straightHigh, isStraight := straightHighCard(ranks)

	switch {
	case flush && isStraight:
		if straightHigh == 14 {
			return encode(HandRoyalFlush, [5]byte{14}), HandRoyalFlush
		}
		return encode(HandStraightFlush, [5]byte{straightHigh}), HandStraightFlush
	}

	groups := groupByCount(counts)

	switch {
	case groups[0].count == 4:
		kicker := onlyOtherRank(ranks, groups[0].rank)
		return encode(HandFourOfKind, [5]byte{groups[0].rank, kicker}), HandFourOfKind
	case groups[0].count == 3 && groups[1].count == 2:
		return encode(HandFullHouse, [5]byte{groups[0].rank, groups[1].rank}), HandFullHouse
	case flush:
		sorted := sortedDesc(ranks)
		return encode(HandFlush, sorted), HandFlush
	case isStraight:
		return encode(HandStraight, [5]byte{straightHigh}), HandStraight
	case groups[0].count == 3:
		kickers := kickersExcluding(ranks, map[byte]bool{groups[0].rank: true})
		return encode(HandThreeOfKind, [5]byte{groups[0].rank, kickers[0], kickers[1]}), HandThreeOfKind
	case groups[0].count == 2 && groups[1].count == 2:
		hi, lo := groups[0].rank, groups[1].rank
		if lo > hi {
			hi, lo = lo, hi
		}
		kicker := kickersExcluding(ranks, map[byte]bool{hi: true, lo: true})[0]
		return encode(HandTwoPair, [5]byte{hi, lo, kicker}), HandTwoPair
	case groups[0].count == 2:
		kickers := kickersExcluding(ranks, map[byte]bool{groups[0].rank: true})
		return encode(HandOnePair, [5]byte{groups[0].rank, kickers[0], kickers[1], kickers[2]}), HandOnePair
	default:
		sorted := sortedDesc(ranks)
		return encode(HandHighCard, sorted), HandHighCard
	}
}

func encode(category byte, kickers [5]byte) uint32 {
	score := uint32(category)
	for _, k := range kickers {
		score = score<<4 | uint32(k)
	}
	return score
}

type rankGroup struct {
	rank  byte
	count int
}

// groupByCount returns rank groups sorted by (count desc, rank desc),
// padded to at least two entries so callers can always read groups[0] and
// groups[1] without a bounds check.
func groupByCount(counts map[byte]int) [2]rankGroup {
	groups := make([]rankGroup, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, rankGroup{rank: r, count: c})
	}
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			if groups[j].count > groups[i].count || (groups[j].count == groups[i].count && groups[j].rank > groups[i].rank) {
				groups[i], groups[j] = groups[j], groups[i]
			}
		}
	}
	var out [2]rankGroup
	for i := 0; i < 2 && i < len(groups); i++ {
		out[i] = groups[i]
	}
	return out
}

func sortedDesc(ranks []byte) [5]byte {
	tmp := append([]byte{}, ranks...)
	for i := 0; i < len(tmp); i++ {
		for j := i + 1; j < len(tmp); j++ {
			if tmp[j] > tmp[i] {
				tmp[i], tmp[j] = tmp[j], tmp[i]
			}
		}
	}
	var out [5]byte
	copy(out[:], tmp)
	return out
}

func kickersExcluding(ranks []byte, exclude map[byte]bool) []byte {
	rest := make([]byte, 0, len(ranks))
	for _, r := range ranks {
		if !exclude[r] {
			rest = append(rest, r)
		}
	}
	sorted := sortedDesc(rest)
	return sorted[:len(rest)]
}

func onlyOtherRank(ranks []byte, exclude byte) byte {
	for _, r := range ranks {
		if r != exclude {
			return r
		}
	}
	return 0
}

// straightHighCard returns the high card of a 5-straight among ranks, and
// whether one exists. The wheel (A-2-3-4-5) reports a high card of 5, so it
// compares below a 6-high straight as required.
func straightHighCard(ranks []byte) (byte, bool) {
	seen := map[byte]bool{}
	for _, r := range ranks {
		seen[r] = true
	}
	if len(seen) != 5 {
		return 0, false
	}
	sorted := make([]byte, 0, 5)
	for r := range seen {
		sorted = append(sorted, r)
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	if sorted[4]-sorted[0] == 4 {
		return sorted[4], true
	}
	// Wheel: A(14),2,3,4,5.
	if sorted[0] == 2 && sorted[1] == 3 && sorted[2] == 4 && sorted[3] == 5 && sorted[4] == 14 {
		return 5, true
	}
	return 0, false
}
