// Package blackjack implements the rules layer of the blackjack round engine:
// cards, packs and the shuffled shoe, hand valuation, the hit/stand decision
// policy used by AI seats, and seat-versus-dealer resolution.
//
// Everything in this package is pure except Shoe, which is owned by a single
// round at a time.
//
// # Valuation
//
// Evaluate counts every Ace as 1 for the hard total and promotes at most one
// Ace to 11 for the soft total:
//
//	s := blackjack.Evaluate(blackjack.MustParseCards("AsAh9d"))
//	// s.Hard == 11, s.Soft == 21, s.Blackjack == true
//
// # Deterministic Testing
//
// Shoes take an injected *rand.Rand so tests can seed them:
//
//	shoe := blackjack.NewShoe(randutil.New(42))
//	shoe.Initialize(blackjack.StandardPacks(6)...)
package blackjack
