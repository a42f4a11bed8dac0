package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type TriggerData struct {
	Actor   string `json:"actor"`
	Trigger string `json:"trigger"`
	Seat    int    `json:"seat,omitempty"`
}

type JoinDealerData struct {
	Actor string `json:"actor"`
}

type SitData struct {
	Seat     int    `json:"seat,omitempty"` // 0 takes the first free seat
	Occupant string `json:"occupant"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TriggerResultData struct {
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Await   string `json:"await"`
	Reason  string `json:"reason,omitempty"`
}

type CardData struct {
	Text     string `json:"text,omitempty"`
	Suit     string `json:"suit,omitempty"`
	Face     string `json:"face,omitempty"`
	Value    int    `json:"value,omitempty"`
	FaceDown bool   `json:"faceDown,omitempty"`
}

type ScoreData struct {
	Hard      int  `json:"hard"`
	Soft      int  `json:"soft"`
	Best      int  `json:"best"`
	Bust      bool `json:"bust"`
	Blackjack bool `json:"blackjack"`
}

type SeatData struct {
	Seat     int        `json:"seat"`
	Occupant string     `json:"occupant"`
	Cards    []CardData `json:"cards"`
	Score    ScoreData  `json:"score"`
	Acting   bool       `json:"acting,omitempty"`
}

type DealerData struct {
	Actor      string     `json:"actor,omitempty"`
	Cards      []CardData `json:"cards"`
	Score      ScoreData  `json:"score"`
	HoleHidden bool       `json:"holeHidden"`
}

type SeatResultData struct {
	Seat    int        `json:"seat"`
	Cards   []CardData `json:"cards"`
	Score   ScoreData  `json:"score"`
	Outcome string     `json:"outcome"`
}

type SnapshotData struct {
	TableID       string           `json:"tableId"`
	RoundID       string           `json:"roundId,omitempty"`
	Phase         string           `json:"phase"`
	Stage         string           `json:"stage,omitempty"`
	Await         string           `json:"await"`
	Halted        bool             `json:"halted,omitempty"`
	Busy          bool             `json:"busy,omitempty"`
	ActingSeat    int              `json:"actingSeat,omitempty"`
	Dealer        DealerData       `json:"dealer"`
	Seats         []SeatData       `json:"seats"`
	ShoeRemaining int              `json:"shoeRemaining"`
	Results       []SeatResultData `json:"results,omitempty"`
}

type TableInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Seats          int    `json:"seats"`
	Occupied       int    `json:"occupied"`
	DealerPosition bool   `json:"dealerPosition"`
	Dealer         string `json:"dealer,omitempty"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type EventData struct {
	TableID string `json:"tableId"`
	RoundID string `json:"roundId,omitempty"`

	From    string           `json:"from,omitempty"`
	To      string           `json:"to,omitempty"`
	Owner   string           `json:"owner,omitempty"`
	Seat    int              `json:"seat,omitempty"`
	Card    *CardData        `json:"card,omitempty"`
	Cards   []CardData       `json:"cards,omitempty"`
	Score   *ScoreData       `json:"score,omitempty"`
	Action  string           `json:"action,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Phase   string           `json:"phase,omitempty"`
	Await   string           `json:"await,omitempty"`
	Results []SeatResultData `json:"results,omitempty"`
}

// Helper functions to convert between internal types and message types

func CardFromGame(c blackjack.Card) CardData {
	if c.IsZero() {
		return CardData{FaceDown: true}
	}
	return CardData{
		Text:  c.String(),
		Suit:  c.Suit.String(),
		Face:  c.Face.String(),
		Value: c.Value,
	}
}

func CardsFromGame(cards []blackjack.Card) []CardData {
	out := make([]CardData, len(cards))
	for i, c := range cards {
		out[i] = CardFromGame(c)
	}
	return out
}

func ScoreFromGame(s blackjack.Score) ScoreData {
	return ScoreData{
		Hard:      s.Hard,
		Soft:      s.Soft,
		Best:      s.Best(),
		Bust:      s.Bust,
		Blackjack: s.Blackjack,
	}
}

func ResultsFromGame(results []round.SeatResult) []SeatResultData {
	out := make([]SeatResultData, len(results))
	for i, r := range results {
		out[i] = SeatResultData{
			Seat:    r.Seat,
			Cards:   CardsFromGame(r.Cards),
			Score:   ScoreFromGame(r.Score),
			Outcome: r.Outcome.String(),
		}
	}
	return out
}

func SnapshotFromGame(s round.Snapshot) SnapshotData {
	data := SnapshotData{
		TableID:    s.TableID,
		RoundID:    s.RoundID,
		Phase:      s.Phase.String(),
		Await:      s.Await.String(),
		Halted:     s.Halted,
		Busy:       s.Busy,
		ActingSeat: s.ActingSeat,
		Dealer: DealerData{
			Actor:      s.Dealer.Actor,
			Cards:      CardsFromGame(s.Dealer.Cards),
			Score:      ScoreFromGame(s.Dealer.Score),
			HoleHidden: s.Dealer.HoleHidden,
		},
		Seats:         make([]SeatData, len(s.Seats)),
		ShoeRemaining: s.ShoeRemaining,
		Results:       ResultsFromGame(s.Results),
	}
	if s.Phase == round.Dealing {
		data.Stage = s.Stage.String()
	}
	for i, seat := range s.Seats {
		data.Seats[i] = SeatData{
			Seat:     seat.Seat,
			Occupant: seat.Occupant.String(),
			Cards:    CardsFromGame(seat.Cards),
			Score:    ScoreFromGame(seat.Score),
			Acting:   seat.Acting,
		}
	}
	return data
}

func TriggerResultFromGame(t round.Trigger, r round.Result) TriggerResultData {
	data := TriggerResultData{
		Trigger: t.Kind.String(),
		Status:  r.Status.String(),
		Phase:   r.Phase.String(),
		Await:   r.Await.String(),
	}
	if r.Err != nil {
		data.Reason = r.Err.Error()
	}
	return data
}

// EventMessage converts an engine event to a WebSocket message
func EventMessage(event round.Event) (*Message, error) {
	var (
		mt   MessageType
		data EventData
	)

	switch ev := event.(type) {
	case round.PhaseChangedEvent:
		mt = MessageTypePhaseChanged
		data = eventData(ev.Header)
		data.From, data.To = ev.From.String(), ev.To.String()
	case round.CardDealtEvent:
		mt = MessageTypeCardDealt
		data = eventData(ev.Header)
		card := CardFromGame(ev.Card)
		card.FaceDown = ev.FaceDown
		data.Owner, data.Card = ev.Owner.String(), &card
	case round.HandUpdatedEvent:
		mt = MessageTypeHandUpdated
		data = eventData(ev.Header)
		score := ScoreFromGame(ev.Score)
		data.Owner, data.Cards, data.Score = ev.Owner.String(), CardsFromGame(ev.Cards), &score
	case round.DecisionMadeEvent:
		mt = MessageTypeDecisionMade
		data = eventData(ev.Header)
		score := ScoreFromGame(ev.Score)
		data.Seat, data.Score = ev.Seat, &score
		data.Action, data.Reason = ev.Decision.Action.String(), ev.Decision.Rationale.String()
	case round.AwaitingEvent:
		mt = MessageTypeAwaiting
		data = eventData(ev.Header)
		data.Phase, data.Await, data.Seat = ev.Phase.String(), ev.Await.String(), ev.Seat
	case round.DealerRevealedEvent:
		mt = MessageTypeDealerRevealed
		data = eventData(ev.Header)
		card := CardFromGame(ev.HoleCard)
		score := ScoreFromGame(ev.Score)
		data.Card, data.Cards, data.Score = &card, CardsFromGame(ev.Cards), &score
	case round.RoundResolvedEvent:
		mt = MessageTypeRoundResolved
		data = eventData(ev.Header)
		score := ScoreFromGame(ev.Dealer)
		data.Cards, data.Score, data.Results = CardsFromGame(ev.DealerCards), &score, ResultsFromGame(ev.Results)
	case round.RoundCancelledEvent:
		mt = MessageTypeRoundCancelled
		data = eventData(ev.Header)
		data.Phase, data.Reason = ev.Phase.String(), ev.Reason
	case round.ShoeExhaustedEvent:
		mt = MessageTypeShoeExhausted
		data = eventData(ev.Header)
		data.Phase, data.Owner = ev.Phase.String(), ev.Owner.String()
	default:
		return nil, fmt.Errorf("unsupported event %T", event)
	}

	msg, err := NewMessage(mt, data)
	if err != nil {
		return nil, err
	}
	msg.Timestamp = event.Timestamp()
	return msg, nil
}

func eventData(h round.Header) EventData {
	return EventData{TableID: h.TableID, RoundID: h.RoundID}
}
