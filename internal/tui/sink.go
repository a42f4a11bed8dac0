package tui

import (
	"github.com/lox/blackjack/internal/round"
)

// EventSink is a round.Sink that hands events to the TUI program. Events are
// dropped rather than blocking the round when the TUI falls behind.
type EventSink struct {
	events chan round.Event
}

// NewEventSink creates a sink with a buffered channel
func NewEventSink() *EventSink {
	return &EventSink{events: make(chan round.Event, 256)}
}

// OnEvent implements round.Sink
func (s *EventSink) OnEvent(event round.Event) {
	select {
	case s.events <- event:
	default:
	}
}

// Events returns the channel the TUI reads from
func (s *EventSink) Events() <-chan round.Event {
	return s.events
}
