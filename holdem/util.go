package holdem

import "holdem-lite/card"

func containsCard(cards []card.Card, c card.Card) bool {
	for _, cc := range cards {
		if cc == c {
			return true
		}
	}
	return false
}
