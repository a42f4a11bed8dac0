package main

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/round"
	"github.com/lox/blackjack/internal/table"
)

// newTable seats the configured occupants and builds the table's engine
func newTable(tc config.TableConfig, rng *rand.Rand, sink round.Sink, clock quartz.Clock, logger *log.Logger) (*table.Table, *round.Engine, error) {
	strategy, err := blackjack.LookupStrategy(tc.Strategy)
	if err != nil {
		return nil, nil, err
	}

	t := table.New(tc.Name, tc.Name, tc.Seats, tc.HasDealerPosition())
	for _, seat := range tc.AISeats {
		if err := t.Sit(seat, table.AI); err != nil {
			return nil, nil, fmt.Errorf("table %s: %w", tc.Name, err)
		}
	}
	for _, seat := range tc.HumanSeats {
		if err := t.Sit(seat, table.Human); err != nil {
			return nil, nil, fmt.Errorf("table %s: %w", tc.Name, err)
		}
	}

	engine := round.New(t.ID, t, rng,
		round.WithStrategy(strategy),
		round.WithPacks(tc.Packs),
		round.WithSink(sink),
		round.WithLogger(logger),
		round.WithClock(clock),
	)
	return t, engine, nil
}
