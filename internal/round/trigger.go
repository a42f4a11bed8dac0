package round

import (
	"errors"
	"fmt"
)

// Rejection reasons. Triggers that do not apply to the current state are
// rejected with one of these, never ignored.
var (
	ErrNoDealer        = errors.New("no dealer is bound to the table")
	ErrRoundInProgress = errors.New("a round is already in progress")
	ErrNoSeats         = errors.New("no occupied seats")
	ErrNotAwaiting     = errors.New("trigger does not apply to the current state")
	ErrBusy            = errors.New("dealing in progress")
	ErrWrongSeat       = errors.New("trigger names a seat that is not acting")
	ErrUnknownTrigger  = errors.New("unknown trigger")
	ErrDealerBound     = errors.New("another dealer is bound to the table")
)

// TriggerKind names an external event delivered to the engine
type TriggerKind uint8

const (
	DealOrAdvance TriggerKind = iota + 1
	RevealDealerCard
	ResetRound
	CancelDealerRole
	SeatHit
	SeatStand
)

// String returns the wire name of a trigger kind
func (k TriggerKind) String() string {
	switch k {
	case DealOrAdvance:
		return "deal"
	case RevealDealerCard:
		return "reveal"
	case ResetRound:
		return "reset"
	case CancelDealerRole:
		return "cancel"
	case SeatHit:
		return "hit"
	case SeatStand:
		return "stand"
	default:
		return "unknown"
	}
}

// ParseTriggerKind converts a wire name to a TriggerKind
func ParseTriggerKind(s string) (TriggerKind, error) {
	switch s {
	case "deal", "advance":
		return DealOrAdvance, nil
	case "reveal":
		return RevealDealerCard, nil
	case "reset":
		return ResetRound, nil
	case "cancel":
		return CancelDealerRole, nil
	case "hit":
		return SeatHit, nil
	case "stand":
		return SeatStand, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTrigger, s)
	}
}

// Trigger is one external event. Seat is only meaningful for SeatHit and SeatStand.
type Trigger struct {
	Kind TriggerKind
	Seat int
}

// String returns a compact description for logs
func (t Trigger) String() string {
	if t.Kind == SeatHit || t.Kind == SeatStand {
		return fmt.Sprintf("%s(seat %d)", t.Kind, t.Seat)
	}
	return t.Kind.String()
}

// Status classifies how the engine handled a trigger
type Status uint8

const (
	Accepted Status = iota
	Rejected
	Halted
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Result reports the outcome of a trigger. Err carries the reason for
// Rejected and Halted results.
type Result struct {
	Status Status
	Phase  Phase
	Await  Await
	Err    error
}

// OK reports whether the trigger was accepted
func (r Result) OK() bool {
	return r.Status == Accepted
}
