package round

import (
	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/table"
)

// SeatView is one participating seat as presentation sees it
type SeatView struct {
	Seat     int
	Occupant table.Occupant
	Cards    []blackjack.Card
	Score    blackjack.Score
	Acting   bool
}

// DealerView is the dealer's hand with the hole card masked while hidden
type DealerView struct {
	Actor      string
	Cards      []blackjack.Card
	Score      blackjack.Score
	HoleHidden bool
}

// Snapshot is a read-only copy of the engine state
type Snapshot struct {
	TableID       string
	RoundID       string
	Phase         Phase
	Stage         DealStage
	Await         Await
	Halted        bool
	Busy          bool
	ActingSeat    int
	Dealer        DealerView
	Seats         []SeatView
	ShoeRemaining int
	Results       []SeatResult
}

// Snapshot returns a copy of the current state. It shares no memory with the engine.
func (e *Engine) Snapshot() Snapshot {
	cards, score := e.dealerView()
	snap := Snapshot{
		TableID: e.tableID,
		RoundID: e.roundID,
		Phase:   e.phase,
		Stage:   e.stage,
		Await:   e.await,
		Halted:  e.halted,
		Busy:    e.Pending(),
		Dealer: DealerView{
			Actor:      e.dealer,
			Cards:      cards,
			Score:      score,
			HoleHidden: e.holeHidden,
		},
		Results: append([]SeatResult(nil), e.results...),
	}
	if e.shoe != nil {
		snap.ShoeRemaining = e.shoe.Remaining()
	}

	acting := 0
	if e.phase == PlayerTurns && e.turn < len(e.seats) {
		acting = e.seats[e.turn].seat.ID
	}
	snap.ActingSeat = acting

	snap.Seats = make([]SeatView, len(e.seats))
	for i := range e.seats {
		sh := &e.seats[i]
		snap.Seats[i] = SeatView{
			Seat:     sh.seat.ID,
			Occupant: sh.seat.Occupant,
			Cards:    e.cards(&sh.hand),
			Score:    sh.hand.Score(),
			Acting:   sh.seat.ID == acting,
		}
	}
	return snap
}

// Seat returns the view for a seat ID, if it is in the round
func (s Snapshot) Seat(id int) (SeatView, bool) {
	for _, v := range s.Seats {
		if v.Seat == id {
			return v, true
		}
	}
	return SeatView{}, false
}
