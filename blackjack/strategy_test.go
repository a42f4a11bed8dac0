package blackjack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicStrategyRules(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		cards  string
		upCard int
		want   Decision
	}{
		{"natural", "AsKh", 10, Decision{Stand, RationaleNatural}},
		{"soft eighteen vs ten", "As7h", 10, Decision{Stand, RationaleSoftStand}},
		{"soft seventeen vs ace", "As6h", 1, Decision{Stand, RationaleSoftStand}},
		{"hard twelve vs four", "Ts2h", 4, Decision{Stand, RationaleDealerWeak}},
		{"hard sixteen vs six", "Ts6h", 6, Decision{Stand, RationaleDealerWeak}},
		{"hard sixteen vs seven", "Ts6h", 7, Decision{Hit, RationaleDealerStrong}},
		{"hard twelve vs ace", "Ts2h", 1, Decision{Hit, RationaleDealerStrong}},
		{"soft sixteen vs ten", "As5h", 10, Decision{Hit, RationaleDealerStrong}},
		{"hard eleven vs five", "5s6h", 5, Decision{Hit, RationaleLowTotal}},
		{"hard seventeen vs ten", "Ts7h", 10, Decision{Stand, RationaleSoftStand}},
		{"bust", "TsTh5d", 10, Decision{Stand, RationaleBust}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BasicStrategy.Decide(Evaluate(MustParseCards(tt.cards)), tt.upCard)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStrategiesAreTotal(t *testing.T) {
	t.Parallel()
	for _, name := range StrategyNames() {
		s, err := LookupStrategy(name)
		require.NoError(t, err)

		for hard := 4; hard <= 21; hard++ {
			for aces := 0; aces <= 4; aces++ {
				if aces > hard {
					continue
				}
				for up := 1; up <= 10; up++ {
					hand := score(hard, aces)
					d := s.Decide(hand, up)
					assert.Contains(t, []Action{Hit, Stand}, d.Action)

					// Same inputs, same answer.
					assert.Equal(t, d, s.Decide(hand, up))

					if hand.Blackjack || hand.Soft >= 17 {
						assert.Equal(t, Stand, d.Action, "%s: hard=%d aces=%d up=%d", name, hard, aces, up)
					}
				}
			}
		}
	}
}

func TestDealerStrategy(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Hit, DealerStrategy.Decide(Evaluate(MustParseCards("Ts2h")), 4).Action)
	assert.Equal(t, Hit, DealerStrategy.Decide(Evaluate(MustParseCards("Ts6h")), 6).Action)
	assert.Equal(t, Stand, DealerStrategy.Decide(Evaluate(MustParseCards("As6h")), 6).Action)
}

func TestLookupStrategy(t *testing.T) {
	t.Parallel()
	s, err := LookupStrategy("basic")
	require.NoError(t, err)
	assert.Equal(t, Stand, s.Decide(Evaluate(MustParseCards("Ts2h")), 4).Action)

	_, err = LookupStrategy("martingale")
	assert.ErrorContains(t, err, "unknown strategy")
	assert.Equal(t, []string{"basic", "dealer"}, StrategyNames())
}
