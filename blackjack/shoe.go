package blackjack

import (
	"errors"
	rand "math/rand/v2"
)

// ErrShoeEmpty is reported when a draw is attempted on an exhausted shoe
var ErrShoeEmpty = errors.New("shoe is empty")

// Shoe is the working deck for one round, assembled from one or more packs.
// It is owned by a single round and is not safe for concurrent use.
type Shoe struct {
	cards []Card
	rng   *rand.Rand
}

// NewShoe creates an empty shoe that shuffles with rng. A nil rng falls back
// to the global source.
func NewShoe(rng *rand.Rand) *Shoe {
	return &Shoe{rng: rng}
}

// Initialize concatenates the cards of every pack and shuffles the result
func (s *Shoe) Initialize(packs ...Pack) {
	total := 0
	for _, p := range packs {
		total += len(p.Cards)
	}

	s.cards = make([]Card, 0, total)
	for _, p := range packs {
		s.cards = append(s.cards, p.Cards...)
	}
	s.Shuffle()
}

// Shuffle permutes the remaining cards using Fisher-Yates
func (s *Shoe) Shuffle() {
	for i := len(s.cards) - 1; i > 0; i-- {
		var j int
		if s.rng != nil {
			j = s.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
}

// Draw removes and returns the front card. ok is false when the shoe is empty.
func (s *Shoe) Draw() (card Card, ok bool) {
	if len(s.cards) == 0 {
		return Card{}, false
	}
	card = s.cards[0]
	s.cards = s.cards[1:]
	return card, true
}

// Remaining returns the number of undrawn cards
func (s *Shoe) Remaining() int {
	return len(s.cards)
}

// Stack replaces the shoe contents with cards in the given order, front first.
func (s *Shoe) Stack(cards []Card) {
	s.cards = append(s.cards[:0:0], cards...)
}
