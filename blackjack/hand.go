package blackjack

import "strings"

const (
	// BlackjackTotal is the best possible hand value
	BlackjackTotal = 21
	// DealerStandTotal is the total at which the dealer stops drawing
	DealerStandTotal = 17

	softBonus = 10
)

// Score is the valuation of a set of cards
type Score struct {
	Hard      int  // every Ace counted as 1
	Soft      int  // one Ace promoted to 11 when that does not bust, otherwise Hard
	Bust      bool // Hard exceeds 21
	Blackjack bool // Hard or Soft equals 21
}

// Best returns the total the hand plays as
func (s Score) Best() int {
	return s.Soft
}

// IsSoft reports whether an Ace is currently counted as 11
func (s Score) IsSoft() bool {
	return s.Soft != s.Hard
}

// Evaluate values a set of cards. It is used identically for the dealer and
// every seat.
func Evaluate(cards []Card) Score {
	hard := 0
	aces := 0
	for _, c := range cards {
		hard += c.Value
		if c.IsAce() {
			aces++
		}
	}
	return score(hard, aces)
}

func score(hard, aces int) Score {
	soft := hard
	if aces > 0 && hard+softBonus <= BlackjackTotal {
		soft = hard + softBonus
	}
	return Score{
		Hard:      hard,
		Soft:      soft,
		Bust:      hard > BlackjackTotal,
		Blackjack: hard == BlackjackTotal || soft == BlackjackTotal,
	}
}

// Hand is the ordered set of cards dealt to one owner during a round.
// Total is the hard total; the soft total is always derived.
type Hand struct {
	Cards []Card
	Aces  int
	Total int
}

// Add appends a card and keeps the running totals in sync
func (h *Hand) Add(c Card) {
	h.Cards = append(h.Cards, c)
	h.Total += c.Value
	if c.IsAce() {
		h.Aces++
	}
}

// Score values the hand
func (h *Hand) Score() Score {
	return score(h.Total, h.Aces)
}

// Len returns the number of cards in the hand
func (h *Hand) Len() int {
	return len(h.Cards)
}

// Reset empties the hand for the next round
func (h *Hand) Reset() {
	h.Cards = nil
	h.Aces = 0
	h.Total = 0
}

// String returns the cards in compact notation separated by spaces
func (h *Hand) String() string {
	parts := make([]string, len(h.Cards))
	for i, c := range h.Cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
