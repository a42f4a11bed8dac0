// Package statistics accumulates seat outcomes across many rounds.
package statistics

import (
	"fmt"
	"math"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
)

// HandResult is one seat's result in one round
type HandResult struct {
	Seat       int
	Outcome    blackjack.Outcome
	Bust       bool
	Natural    bool // 21 on the first two cards
	DealerBust bool
}

// Net returns the result in even-money units: +1 win, 0 push, -1 loss
func (r HandResult) Net() float64 {
	switch r.Outcome {
	case blackjack.Win:
		return 1
	case blackjack.Push:
		return 0
	default:
		return -1
	}
}

// SeatStats tracks results for one seat number
type SeatStats struct {
	Hands  int
	SumNet float64
}

// Statistics tracks simulation results. It is a round.Sink and is not safe
// for concurrent use; give each table its own and Merge them afterwards.
type Statistics struct {
	Rounds int
	Hands  int
	SumNet float64
	SumSq  float64 // sum of squares for variance

	Wins     int
	Pushes   int
	Losses   int
	Busts    int
	Naturals int

	DealerBusts int // rounds the dealer busted
	Halts       int // rounds stopped by an empty shoe

	Seats map[int]*SeatStats
}

// OnEvent implements round.Sink
func (s *Statistics) OnEvent(event round.Event) {
	switch ev := event.(type) {
	case round.RoundResolvedEvent:
		s.Rounds++
		if ev.Dealer.Bust {
			s.DealerBusts++
		}
		for _, r := range ev.Results {
			s.Add(HandResult{
				Seat:       r.Seat,
				Outcome:    r.Outcome,
				Bust:       r.Score.Bust,
				Natural:    r.Score.Blackjack && len(r.Cards) == 2,
				DealerBust: ev.Dealer.Bust,
			})
		}
	case round.ShoeExhaustedEvent:
		s.Halts++
	}
}

// Add incorporates one seat result
func (s *Statistics) Add(r HandResult) {
	net := r.Net()
	s.Hands++
	s.SumNet += net
	s.SumSq += net * net

	switch r.Outcome {
	case blackjack.Win:
		s.Wins++
	case blackjack.Push:
		s.Pushes++
	default:
		s.Losses++
	}
	if r.Bust {
		s.Busts++
	}
	if r.Natural {
		s.Naturals++
	}

	if s.Seats == nil {
		s.Seats = make(map[int]*SeatStats)
	}
	seat, ok := s.Seats[r.Seat]
	if !ok {
		seat = &SeatStats{}
		s.Seats[r.Seat] = seat
	}
	seat.Hands++
	seat.SumNet += net
}

// Merge folds another table's statistics into s
func (s *Statistics) Merge(o *Statistics) {
	s.Rounds += o.Rounds
	s.Hands += o.Hands
	s.SumNet += o.SumNet
	s.SumSq += o.SumSq
	s.Wins += o.Wins
	s.Pushes += o.Pushes
	s.Losses += o.Losses
	s.Busts += o.Busts
	s.Naturals += o.Naturals
	s.DealerBusts += o.DealerBusts
	s.Halts += o.Halts

	for id, seat := range o.Seats {
		if s.Seats == nil {
			s.Seats = make(map[int]*SeatStats)
		}
		mine, ok := s.Seats[id]
		if !ok {
			mine = &SeatStats{}
			s.Seats[id] = mine
		}
		mine.Hands += seat.Hands
		mine.SumNet += seat.SumNet
	}
}

// Mean returns the average net result per hand
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumNet / float64(s.Hands)
}

// Variance returns the sample variance of the net results
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Rate returns n as a fraction of all hands
func (s *Statistics) Rate(n int) float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(n) / float64(s.Hands)
}

// SeatMean returns the average net result for one seat
func (s *Statistics) SeatMean(seat int) float64 {
	ss, ok := s.Seats[seat]
	if !ok || ss.Hands == 0 {
		return 0
	}
	return ss.SumNet / float64(ss.Hands)
}

// Validate checks that the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Wins+s.Pushes+s.Losses != s.Hands {
		return fmt.Errorf("outcome mismatch: %d wins + %d pushes + %d losses != %d hands",
			s.Wins, s.Pushes, s.Losses, s.Hands)
	}
	if net := float64(s.Wins - s.Losses); math.Abs(net-s.SumNet) > 1e-6 {
		return fmt.Errorf("ledger mismatch: net %.2f, expected %.2f", s.SumNet, net)
	}
	seatHands := 0
	for _, seat := range s.Seats {
		seatHands += seat.Hands
	}
	if seatHands != s.Hands {
		return fmt.Errorf("seat mismatch: %d seat hands != %d hands", seatHands, s.Hands)
	}
	if s.Busts > s.Losses {
		return fmt.Errorf("more busts (%d) than losses (%d)", s.Busts, s.Losses)
	}
	return nil
}
