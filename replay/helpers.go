package replay

import (
	"fmt"
	"strings"

	"holdem-lite/card"
	"holdem-lite/holdem"
)

func parsePhaseName(raw string) (holdem.Phase, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PREFLOP":
		return holdem.PhaseTypePreflop, nil
	case "FLOP":
		return holdem.PhaseTypeFlop, nil
	case "TURN":
		return holdem.PhaseTypeTurn, nil
	case "RIVER":
		return holdem.PhaseTypeRiver, nil
	default:
		return 0, fmt.Errorf("unsupported phase %q", raw)
	}
}

func phaseName(phase holdem.Phase) string {
	if name, ok := holdem.PhaseTypeDictionary[phase]; ok {
		return name
	}
	return "unspecified"
}

func parseActionName(raw string) (holdem.ActionType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CHECK":
		return holdem.PlayerActionTypeCheck, nil
	case "CALL":
		return holdem.PlayerActionTypeCall, nil
	case "BET", "RAISE":
		return holdem.PlayerActionTypeRaise, nil
	case "FOLD":
		return holdem.PlayerActionTypeFold, nil
	case "ALLIN", "ALL_IN", "ALL-IN":
		return holdem.PlayerActionTypeAllin, nil
	default:
		return 0, fmt.Errorf("unsupported action type %q", raw)
	}
}

func actionName(a holdem.ActionType) string {
	if name, ok := holdem.PlayerActionTypeDictionary[a]; ok {
		return name
	}
	return "unknown"
}

func heroHoleCards(snap holdem.Snapshot, heroChair uint16) []card.Card {
	for _, ps := range snap.Players {
		if ps.Chair == heroChair {
			return append([]card.Card{}, ps.HandCards...)
		}
	}
	return nil
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
