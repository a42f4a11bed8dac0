package blackjack

import (
	"fmt"
	"slices"
	"sort"
)

// Action is a seat's choice on its turn
type Action uint8

const (
	Stand Action = iota
	Hit
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	default:
		return "unknown"
	}
}

// Rationale tags why a decision was made. Presentation uses it for
// highlighting; the engine ignores it.
type Rationale uint8

const (
	RationaleNone Rationale = iota
	RationaleNatural
	RationaleSoftStand
	RationaleDealerWeak
	RationaleDealerStrong
	RationaleLowTotal
	RationaleBust
	RationaleHuman
)

// String returns the string representation of a rationale
func (r Rationale) String() string {
	switch r {
	case RationaleNatural:
		return "natural"
	case RationaleSoftStand:
		return "soft-stand"
	case RationaleDealerWeak:
		return "dealer-weak"
	case RationaleDealerStrong:
		return "dealer-strong"
	case RationaleLowTotal:
		return "low-total"
	case RationaleBust:
		return "bust"
	case RationaleHuman:
		return "human"
	default:
		return "none"
	}
}

// Decision is the outcome of a strategy lookup
type Decision struct {
	Action    Action
	Rationale Rationale
}

// Strategy maps a hand and the dealer's up-card to hit or stand.
// Implementations must be pure.
type Strategy interface {
	Decide(hand Score, dealerUpCard int) Decision
}

// StrategyTable is a threshold-driven hit/stand policy. The thresholds are
// data so alternate rule sets can be swapped in from configuration.
type StrategyTable struct {
	// SoftStand stands on any soft total at or above this value.
	SoftStand int
	// WeakUpCards are the dealer up-cards considered likely to bust.
	WeakUpCards []int
	// StandVsWeak stands on a hard total at or above this value against a weak up-card.
	StandVsWeak int
	// HitVsStrong hits a hard total at or below this value against any other up-card.
	HitVsStrong int
}

// BasicStrategy is the canonical policy for AI seats
var BasicStrategy = StrategyTable{
	SoftStand:   17,
	WeakUpCards: []int{2, 3, 4, 5, 6},
	StandVsWeak: 12,
	HitVsStrong: 16,
}

// DealerStrategy plays the seat like the house: stand on any 17, hit below
var DealerStrategy = StrategyTable{
	SoftStand:   DealerStandTotal,
	HitVsStrong: DealerStandTotal - 1,
}

// Decide implements Strategy
func (t StrategyTable) Decide(hand Score, dealerUpCard int) Decision {
	switch {
	case hand.Bust:
		return Decision{Action: Stand, Rationale: RationaleBust}
	case hand.Blackjack:
		return Decision{Action: Stand, Rationale: RationaleNatural}
	case hand.Soft >= t.SoftStand:
		return Decision{Action: Stand, Rationale: RationaleSoftStand}
	case t.isWeak(dealerUpCard) && hand.Hard >= t.StandVsWeak:
		return Decision{Action: Stand, Rationale: RationaleDealerWeak}
	case !t.isWeak(dealerUpCard) && hand.Hard <= t.HitVsStrong:
		return Decision{Action: Hit, Rationale: RationaleDealerStrong}
	default:
		return Decision{Action: Hit, Rationale: RationaleLowTotal}
	}
}

func (t StrategyTable) isWeak(upCard int) bool {
	return slices.Contains(t.WeakUpCards, upCard)
}

var strategies = map[string]Strategy{
	"basic":  BasicStrategy,
	"dealer": DealerStrategy,
}

// LookupStrategy returns a named strategy
func LookupStrategy(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, StrategyNames())
	}
	return s, nil
}

// StrategyNames lists the registered strategy names in sorted order
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
