// Package deck builds and shuffles the face-down draw pile.
package deck

import (
	"math/rand"

	"dumbal/internal/model"
	"dumbal/internal/rules"
)

// New returns a freshly shuffled 52-card deck.
func New() []model.Card {
	cards := make([]model.Card, 0, model.TotalCards)
	for _, suit := range model.Suits {
		for number := 1; number <= 13; number++ {
			cards = append(cards, model.Card{Suit: suit, Number: number})
		}
	}
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}

// Reset rebuilds a full shuffled deck minus the cards currently in
// play. Used when the draw pile runs dry mid-round.
func Reset(inPlay []model.Card) []model.Card {
	return rules.RemoveCards(New(), inPlay)
}
