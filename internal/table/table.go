// Package table holds seat occupancy for a blackjack table. Occupancy is
// changed by the outside world at any time; the round engine only reads a
// snapshot when a round starts.
package table

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoSuchSeat   = errors.New("no such seat")
	ErrSeatOccupied = errors.New("seat is occupied")
	ErrSeatEmpty    = errors.New("seat is empty")
	ErrNoFreeSeat   = errors.New("no free seat")
)

// Occupant describes who sits in a seat
type Occupant uint8

const (
	Empty Occupant = iota
	AI
	Human
)

// String returns the string representation of an occupant kind
func (o Occupant) String() string {
	switch o {
	case Empty:
		return "empty"
	case AI:
		return "ai"
	case Human:
		return "human"
	default:
		return "unknown"
	}
}

// ParseOccupant converts a string to an Occupant
func ParseOccupant(s string) (Occupant, error) {
	switch s {
	case "empty", "":
		return Empty, nil
	case "ai", "npc":
		return AI, nil
	case "human":
		return Human, nil
	default:
		return Empty, fmt.Errorf("unknown occupant %q", s)
	}
}

// Seat is one chair at the table. IDs are 1-based and follow table order.
type Seat struct {
	ID       int
	Occupant Occupant
}

// Occupied reports whether someone sits in the seat
func (s Seat) Occupied() bool {
	return s.Occupant != Empty
}

// Table is a blackjack table's seating
type Table struct {
	ID             string
	Name           string
	DealerPosition bool // false when the table has no place for a dealer to stand

	mu    sync.RWMutex
	seats []Seat
}

// New creates a table with n empty seats
func New(id, name string, n int, dealerPosition bool) *Table {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{ID: i + 1}
	}
	return &Table{
		ID:             id,
		Name:           name,
		DealerPosition: dealerPosition,
		seats:          seats,
	}
}

// Sit places an occupant in a specific seat
func (t *Table) Sit(seatID int, who Occupant) error {
	if who == Empty {
		return fmt.Errorf("seat %d: cannot sit an empty occupant", seatID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seat, err := t.seat(seatID)
	if err != nil {
		return err
	}
	if seat.Occupied() {
		return fmt.Errorf("seat %d: %w", seatID, ErrSeatOccupied)
	}
	seat.Occupant = who
	return nil
}

// SitFirstFree places an occupant in the lowest numbered free seat
func (t *Table) SitFirstFree(who Occupant) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.seats {
		if !t.seats[i].Occupied() {
			t.seats[i].Occupant = who
			return t.seats[i].ID, nil
		}
	}
	return 0, ErrNoFreeSeat
}

// Leave empties a seat
func (t *Table) Leave(seatID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	seat, err := t.seat(seatID)
	if err != nil {
		return err
	}
	if !seat.Occupied() {
		return fmt.Errorf("seat %d: %w", seatID, ErrSeatEmpty)
	}
	seat.Occupant = Empty
	return nil
}

// Seats returns a copy of every seat in table order
func (t *Table) Seats() []Seat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Seat(nil), t.seats...)
}

// OccupiedSeats returns a snapshot of the occupied seats in table order
func (t *Table) OccupiedSeats() []Seat {
	t.mu.RLock()
	defer t.mu.RUnlock()

	occupied := make([]Seat, 0, len(t.seats))
	for _, s := range t.seats {
		if s.Occupied() {
			occupied = append(occupied, s)
		}
	}
	return occupied
}

func (t *Table) seat(id int) (*Seat, error) {
	if id < 1 || id > len(t.seats) {
		return nil, fmt.Errorf("seat %d: %w", id, ErrNoSuchSeat)
	}
	return &t.seats[id-1], nil
}
