package model

import "fmt"

// Suit is one of the four french playing card suits.
type Suit string

const (
	Hearts   Suit = "Hearts"
	Diamonds Suit = "Diamonds"
	Spades   Suit = "Spades"
	Clubs    Suit = "Clubs"
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Spades, Clubs}

// Card is an immutable card value. Number runs 1..13 where
// ace is 1 and king is 13; equality is structural.
type Card struct {
	Suit   Suit `json:"suit"`
	Number int  `json:"number"`
}

var numberNames = map[int]string{
	1:  "Ace",
	11: "Jack",
	12: "Queen",
	13: "King",
}

// Name returns a human-readable card name, e.g. "Ace of Hearts".
func (c Card) Name() string {
	if name, ok := numberNames[c.Number]; ok {
		return fmt.Sprintf("%s of %s", name, c.Suit)
	}
	return fmt.Sprintf("%d of %s", c.Number, c.Suit)
}
