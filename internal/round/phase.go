package round

// Phase is the round's position in its strictly linear lifecycle
type Phase uint8

const (
	Idle Phase = iota
	ShoeReady
	Dealing
	PlayerTurns
	DealerReveal
	DealerDraw
	Resolution
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ShoeReady:
		return "shoe-ready"
	case Dealing:
		return "dealing"
	case PlayerTurns:
		return "player-turns"
	case DealerReveal:
		return "dealer-reveal"
	case DealerDraw:
		return "dealer-draw"
	case Resolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// InProgress reports whether a round is underway
func (p Phase) InProgress() bool {
	return p != Idle
}

// DealStage is the sub-state of Dealing
type DealStage uint8

const (
	SeatsFirst DealStage = iota
	DealerUpCard
	SeatsSecond
	DealerHoleCard
)

// String returns the string representation of a deal stage
func (s DealStage) String() string {
	switch s {
	case SeatsFirst:
		return "seats-first"
	case DealerUpCard:
		return "dealer-up-card"
	case SeatsSecond:
		return "seats-second"
	case DealerHoleCard:
		return "dealer-hole-card"
	default:
		return "unknown"
	}
}

// Await is the external trigger the engine is suspended on, if any
type Await uint8

const (
	AwaitNone Await = iota
	AwaitStart
	AwaitSeatDecision
	AwaitSeatCard
	AwaitReveal
	AwaitDealerCard
	AwaitReset
)

// String returns the string representation of an await state
func (a Await) String() string {
	switch a {
	case AwaitNone:
		return "none"
	case AwaitStart:
		return "start"
	case AwaitSeatDecision:
		return "seat-decision"
	case AwaitSeatCard:
		return "seat-card"
	case AwaitReveal:
		return "reveal"
	case AwaitDealerCard:
		return "dealer-card"
	case AwaitReset:
		return "reset"
	default:
		return "unknown"
	}
}
