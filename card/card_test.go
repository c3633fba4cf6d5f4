package card

import "testing"

func TestCodeRoundTrip(t *testing.T) {
	for _, c := range []Card{CardSpadeA, CardHeartT, CardClub2, CardDiamondK, CardSpadeJ} {
		code := c.Code()
		back, err := ThdmStrToCard(code)
		if err != nil {
			t.Fatalf("ThdmStrToCard(%q) err: %v", code, err)
		}
		if back != c {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", c, code, back)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	var deck CardList
	cards := make([]Card, 0, 52)
	for c := CardSpadeA; c <= CardSpadeK; c++ {
		cards = append(cards, c)
	}
	deck.Init(cards)
	deck.Shuffle()

	if deck.Count() != len(cards) {
		t.Fatalf("shuffle changed deck size: got %d want %d", deck.Count(), len(cards))
	}
	seen := make(map[Card]bool, len(cards))
	for _, c := range deck {
		if seen[c] {
			t.Fatalf("duplicate card after shuffle: %v", c)
		}
		seen[c] = true
	}
}
