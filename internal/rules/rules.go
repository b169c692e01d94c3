// Package rules holds the pure card and scoring rules of the game.
// Nothing here touches the store; every function is deterministic
// over its inputs.
package rules

import (
	"sort"

	"dumbal/internal/model"
)

// IsValidSelection reports whether a set of cards is playable:
// all cards of the same number (any count), or a run of 3 or more
// consecutive numbers. A run may cross the king/ace boundary once.
func IsValidSelection(cards []model.Card) bool {
	if len(cards) == 0 {
		return false
	}

	numbers := make([]int, len(cards))
	for i, c := range cards {
		numbers[i] = c.Number
	}
	sort.Ints(numbers)

	same := true
	for _, n := range numbers {
		if n != numbers[0] {
			same = false
			break
		}
	}
	if same {
		return true
	}

	if len(numbers) < 3 {
		return false
	}

	// one break is allowed when the run wraps king -> ace
	allowBreak := numbers[0] == 1 && numbers[len(numbers)-1] == 13
	for i := 1; i < len(numbers); i++ {
		if numbers[i] == numbers[i-1]+1 {
			continue
		}
		if allowBreak {
			allowBreak = false
			continue
		}
		return false
	}
	return true
}

// RemoveCards removes, for each card in toRemove, the first structural
// match in cards, and returns the remainder. Matches beyond the
// requested count are kept.
func RemoveCards(cards, toRemove []model.Card) []model.Card {
	removed := make([]bool, len(cards))
	for _, r := range toRemove {
		for i, c := range cards {
			if !removed[i] && c == r {
				removed[i] = true
				break
			}
		}
	}

	remainder := make([]model.Card, 0, len(cards))
	for i, c := range cards {
		if !removed[i] {
			remainder = append(remainder, c)
		}
	}
	return remainder
}

// IncludesCards reports whether every card in subset has a structural
// match in cards.
func IncludesCards(cards, subset []model.Card) bool {
	for _, s := range subset {
		found := false
		for _, c := range cards {
			if c == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CardsTotal sums card numbers; ace counts 1, king counts 13.
func CardsTotal(cards []model.Card) int {
	total := 0
	for _, c := range cards {
		total += c.Number
	}
	return total
}

// ScoreRound applies the round-end scoring rule. Every player scores
// their hand total, except: if the caller of the round holds the
// unique lowest hand they score 0; otherwise the caller has been
// dumballed, every other lowest-hand player scores 0 and the caller
// scores 20 on top of their own hand.
func ScoreRound(cardsByPlayer map[string][]model.Card, endedBy string) map[string]int {
	scores := make(map[string]int, len(cardsByPlayer))
	lowest := 0
	var lowestScorers []string
	for playerID, cards := range cardsByPlayer {
		total := CardsTotal(cards)
		scores[playerID] = total
		switch {
		case len(lowestScorers) == 0 || total < lowest:
			lowestScorers = []string{playerID}
			lowest = total
		case total == lowest:
			lowestScorers = append(lowestScorers, playerID)
		}
	}

	endedByLowest := false
	for _, playerID := range lowestScorers {
		if playerID == endedBy {
			endedByLowest = true
			break
		}
	}

	if len(lowestScorers) > 1 || !endedByLowest {
		// dumballed
		for _, playerID := range lowestScorers {
			if playerID != endedBy {
				scores[playerID] = 0
			}
		}
		scores[endedBy] += 20
	} else {
		scores[endedBy] = 0
	}
	return scores
}

// TotalScores sums each player's per-round scores across all rounds.
func TotalScores(players []string, scores []map[string]int) map[string]int {
	totals := make(map[string]int, len(players))
	for _, playerID := range players {
		totals[playerID] = 0
	}
	for _, round := range scores {
		for _, playerID := range players {
			totals[playerID] += round[playerID]
		}
	}
	return totals
}

// RoundWinners returns the players with the lowest score in the given
// round, or nil if the round has not been scored.
func RoundWinners(players []string, roundNumber int, scores []map[string]int) []string {
	if roundNumber < 0 || roundNumber >= len(scores) {
		return nil
	}
	round := scores[roundNumber]
	lowest := 0
	first := true
	for _, score := range round {
		if first || score < lowest {
			lowest = score
			first = false
		}
	}
	if first {
		return nil
	}
	var winners []string
	for _, playerID := range players {
		if score, ok := round[playerID]; ok && score == lowest {
			winners = append(winners, playerID)
		}
	}
	return winners
}

// OverallWinner returns the player with the lowest cumulative score.
func OverallWinner(players []string, scores []map[string]int) string {
	if len(players) == 0 {
		return ""
	}
	totals := TotalScores(players, scores)
	winner := players[0]
	for _, playerID := range players[1:] {
		if totals[playerID] < totals[winner] {
			winner = playerID
		}
	}
	return winner
}

// NextPlayer returns the player after current, wrapping around. With
// no current player the last player is returned, which fixes the
// first round's leader deterministically. A current player no longer
// in the list resolves to the first player, so leadership passes on
// cleanly when the last round's leader has been eliminated.
func NextPlayer(players []string, current string) string {
	if len(players) == 0 {
		return ""
	}
	if current == "" {
		return players[len(players)-1]
	}
	idx := indexOf(players, current)
	return players[(idx+1)%len(players)]
}

// PreviousPlayer returns the player before current, wrapping around.
// With no current player it returns the player before the last one.
func PreviousPlayer(players []string, current string) string {
	if len(players) == 0 {
		return ""
	}
	if current == "" {
		return PreviousPlayer(players, players[len(players)-1])
	}
	idx := indexOf(players, current)
	if idx < 0 {
		return ""
	}
	return players[(idx-1+len(players))%len(players)]
}

func indexOf(players []string, playerID string) int {
	for i, p := range players {
		if p == playerID {
			return i
		}
	}
	return -1
}
