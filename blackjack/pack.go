package blackjack

// Pack is a fixed list of cards a shoe is assembled from. Packs are never
// mutated; the shoe copies their cards.
type Pack struct {
	Name  string
	Cards []Card
}

// StandardPack returns the 52-card French pack
func StandardPack() Pack {
	cards := make([]Card, 0, 52)
	for suit := Hearts; suit <= Spades; suit++ {
		for face := Ace; face <= King; face++ {
			cards = append(cards, NewCard(face, suit))
		}
	}
	return Pack{Name: "standard", Cards: cards}
}

// StandardPacks returns n standard packs, the usual way to fill a multi-deck shoe
func StandardPacks(n int) []Pack {
	packs := make([]Pack, n)
	for i := range packs {
		packs[i] = StandardPack()
	}
	return packs
}
