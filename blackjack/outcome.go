package blackjack

// Outcome is a seat's result against the dealer
type Outcome uint8

const (
	Lose Outcome = iota
	Push
	Win
)

// String returns the string representation of an outcome
func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Push:
		return "push"
	case Lose:
		return "lose"
	default:
		return "unknown"
	}
}

// Resolve compares a finished seat hand with the dealer's final hand.
// Rules apply in order: seat bust loses, dealer bust wins, then the higher
// best total wins and equal totals push. A natural gets no special treatment.
func Resolve(seat, dealer Score) Outcome {
	switch {
	case seat.Bust:
		return Lose
	case dealer.Bust:
		return Win
	case seat.Best() > dealer.Best():
		return Win
	case seat.Best() == dealer.Best():
		return Push
	default:
		return Lose
	}
}
