package blackjack

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "Hearts"
	case Diamonds:
		return "Diamonds"
	case Clubs:
		return "Clubs"
	case Spades:
		return "Spades"
	default:
		return "Unknown"
	}
}

// Symbol returns the single glyph used in compact card notation
func (s Suit) Symbol() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// IsRed returns true for Hearts and Diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Face is the printed face of a card. It only matters for presentation;
// valuation uses Card.Value.
type Face uint8

const (
	Ace Face = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the short notation for a face (A, 2..9, T, J, Q, K)
func (f Face) String() string {
	switch {
	case f == Ace:
		return "A"
	case f >= Two && f <= Nine:
		return string(rune('0' + f))
	case f == Ten:
		return "T"
	case f == Jack:
		return "J"
	case f == Queen:
		return "Q"
	case f == King:
		return "K"
	default:
		return "?"
	}
}

// Value returns the blackjack value of a face: Ace is 1, face cards are 10
func (f Face) Value() int {
	if f >= Ten {
		return 10
	}
	return int(f)
}

// Card is an immutable playing card. Value is 1..10 with 1 denoting an Ace.
type Card struct {
	Suit  Suit
	Face  Face
	Value int
}

// NewCard creates a card, mapping the face onto its blackjack value
func NewCard(face Face, suit Suit) Card {
	return Card{Suit: suit, Face: face, Value: face.Value()}
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Value == 1
}

// IsZero reports whether c is the empty card returned by an exhausted shoe
func (c Card) IsZero() bool {
	return c.Value == 0
}

// String returns the compact notation, e.g. "A♠"
func (c Card) String() string {
	return c.Face.String() + c.Suit.Symbol()
}

// Name returns the long form used in logs, e.g. "Spades A"
func (c Card) Name() string {
	return fmt.Sprintf("%s %s", c.Suit, c.Face)
}

// ParseCards parses card notation like "AsKh9d" into cards.
// Faces: A, K, Q, J, T, 9..2. Suits: s, h, d, c.
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string length: %d (must be even)", len(s))
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		face, err := parseFace(s[i])
		if err != nil {
			return nil, fmt.Errorf("invalid face '%c' at position %d: %w", s[i], i, err)
		}
		suit, err := parseSuit(s[i+1])
		if err != nil {
			return nil, fmt.Errorf("invalid suit '%c' at position %d: %w", s[i+1], i+1, err)
		}
		cards = append(cards, NewCard(face, suit))
	}
	return cards, nil
}

// MustParseCards parses cards and panics on error (for tests)
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(fmt.Sprintf("failed to parse cards '%s': %v", s, err))
	}
	return cards
}

func parseFace(c byte) (Face, error) {
	switch c {
	case 'A', 'a':
		return Ace, nil
	case 'K', 'k':
		return King, nil
	case 'Q', 'q':
		return Queen, nil
	case 'J', 'j':
		return Jack, nil
	case 'T', 't':
		return Ten, nil
	}
	if c >= '2' && c <= '9' {
		return Face(c - '0'), nil
	}
	return 0, fmt.Errorf("unknown face '%c'", c)
}

func parseSuit(c byte) (Suit, error) {
	switch c {
	case 's', 'S':
		return Spades, nil
	case 'h', 'H':
		return Hearts, nil
	case 'd', 'D':
		return Diamonds, nil
	case 'c', 'C':
		return Clubs, nil
	default:
		return 0, fmt.Errorf("unknown suit '%c'", c)
	}
}
