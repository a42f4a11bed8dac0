package round

import (
	"fmt"
	"sync"
	"time"

	"github.com/lox/blackjack/blackjack"
)

// EventType represents a round event type with type safety
type EventType string

const (
	EventTypePhaseChanged   EventType = "phase_changed"
	EventTypeCardDealt      EventType = "card_dealt"
	EventTypeHandUpdated    EventType = "hand_updated"
	EventTypeDecisionMade   EventType = "decision_made"
	EventTypeAwaiting       EventType = "awaiting"
	EventTypeDealerRevealed EventType = "dealer_revealed"
	EventTypeRoundResolved  EventType = "round_resolved"
	EventTypeRoundCancelled EventType = "round_cancelled"
	EventTypeShoeExhausted  EventType = "shoe_exhausted"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// Owner identifies whose hand a card belongs to. The dealer is 0; seats use
// their 1-based seat ID.
type Owner int

// DealerOwner is the dealer's hand
const DealerOwner Owner = 0

// SeatOwner returns the owner value for a seat
func SeatOwner(seatID int) Owner {
	return Owner(seatID)
}

// IsDealer reports whether the owner is the dealer
func (o Owner) IsDealer() bool {
	return o == DealerOwner
}

// Seat returns the seat ID, or 0 for the dealer
func (o Owner) Seat() int {
	return int(o)
}

// String returns "dealer" or "seat N"
func (o Owner) String() string {
	if o.IsDealer() {
		return "dealer"
	}
	return fmt.Sprintf("seat %d", int(o))
}

// Event is anything the engine reports to the presentation sink
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	EventHeader() Header
}

// Header carries the fields common to every event
type Header struct {
	TableID string
	RoundID string
	At      time.Time
}

func (h Header) Timestamp() time.Time { return h.At }
func (h Header) EventHeader() Header  { return h }

// PhaseChangedEvent is published on every phase transition
type PhaseChangedEvent struct {
	Header
	From Phase
	To   Phase
}

func (e PhaseChangedEvent) EventType() EventType { return EventTypePhaseChanged }

// CardDealtEvent is published for every card leaving the shoe. The card is
// zero while FaceDown is set; DealerRevealedEvent carries it later.
type CardDealtEvent struct {
	Header
	Owner    Owner
	Card     blackjack.Card
	FaceDown bool
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }

// HandUpdatedEvent is published after a hand changes. For the dealer with the
// hole card hidden, Score covers the up-card only.
type HandUpdatedEvent struct {
	Header
	Owner Owner
	Cards []blackjack.Card
	Score blackjack.Score
}

func (e HandUpdatedEvent) EventType() EventType { return EventTypeHandUpdated }

// DecisionMadeEvent is published when a seat hits or stands
type DecisionMadeEvent struct {
	Header
	Seat     int
	Decision blackjack.Decision
	Score    blackjack.Score
}

func (e DecisionMadeEvent) EventType() EventType { return EventTypeDecisionMade }

// AwaitingEvent is published whenever the engine suspends on a trigger
type AwaitingEvent struct {
	Header
	Phase Phase
	Await Await
	Seat  int // acting seat for seat awaits
}

func (e AwaitingEvent) EventType() EventType { return EventTypeAwaiting }

// DealerRevealedEvent is published when the hole card is turned over
type DealerRevealedEvent struct {
	Header
	HoleCard blackjack.Card
	Cards    []blackjack.Card
	Score    blackjack.Score
}

func (e DealerRevealedEvent) EventType() EventType { return EventTypeDealerRevealed }

// SeatResult is one seat's final standing
type SeatResult struct {
	Seat    int
	Cards   []blackjack.Card
	Score   blackjack.Score
	Outcome blackjack.Outcome
}

// RoundResolvedEvent is published once per round with a result per seat
type RoundResolvedEvent struct {
	Header
	DealerCards []blackjack.Card
	Dealer      blackjack.Score
	Results     []SeatResult
}

func (e RoundResolvedEvent) EventType() EventType { return EventTypeRoundResolved }

// RoundCancelledEvent is published when a round is torn down before resolution
type RoundCancelledEvent struct {
	Header
	Phase  Phase
	Reason string
}

func (e RoundCancelledEvent) EventType() EventType { return EventTypeRoundCancelled }

// ShoeExhaustedEvent is published when a draw finds the shoe empty
type ShoeExhaustedEvent struct {
	Header
	Phase Phase
	Owner Owner
}

func (e ShoeExhaustedEvent) EventType() EventType { return EventTypeShoeExhausted }

// Sink receives engine events. OnEvent is called on the engine's goroutine
// and must not call back into the engine.
type Sink interface {
	OnEvent(event Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(event Event) { f(event) }

// EventBus fans events out to any number of sinks
type EventBus struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewEventBus creates an event bus with optional initial sinks
func NewEventBus(sinks ...Sink) *EventBus {
	return &EventBus{sinks: sinks}
}

// Subscribe adds a sink
func (b *EventBus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Unsubscribe removes a sink. Sinks are matched by equality, so func-typed
// sinks cannot be unsubscribed.
func (b *EventBus) Unsubscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.sinks {
		if sub == s {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			return
		}
	}
}

// OnEvent publishes to every subscribed sink in subscription order
func (b *EventBus) OnEvent(event Event) {
	b.mu.RLock()
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, s := range sinks {
		s.OnEvent(event)
	}
}
