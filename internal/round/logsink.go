package round

import "github.com/charmbracelet/log"

// LogSink writes every event to a logger
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink logging at debug level, with results and
// warnings at higher levels.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger.WithPrefix("events")}
}

// OnEvent implements Sink
func (s *LogSink) OnEvent(event Event) {
	switch ev := event.(type) {
	case PhaseChangedEvent:
		s.logger.Debug("Phase changed", "table", ev.TableID, "from", ev.From, "to", ev.To)
	case CardDealtEvent:
		if ev.FaceDown {
			s.logger.Debug("Card dealt face down", "table", ev.TableID, "owner", ev.Owner)
			return
		}
		s.logger.Debug("Card dealt", "table", ev.TableID, "owner", ev.Owner, "card", ev.Card)
	case DecisionMadeEvent:
		s.logger.Debug("Decision", "table", ev.TableID, "seat", ev.Seat,
			"action", ev.Decision.Action, "rationale", ev.Decision.Rationale)
	case DealerRevealedEvent:
		s.logger.Debug("Hole card revealed", "table", ev.TableID, "card", ev.HoleCard, "total", ev.Score.Best())
	case RoundResolvedEvent:
		for _, r := range ev.Results {
			s.logger.Info("Seat result", "table", ev.TableID, "round", ev.RoundID,
				"seat", r.Seat, "total", r.Score.Best(), "dealer", ev.Dealer.Best(), "outcome", r.Outcome)
		}
	case RoundCancelledEvent:
		s.logger.Warn("Round cancelled", "table", ev.TableID, "round", ev.RoundID, "reason", ev.Reason)
	case ShoeExhaustedEvent:
		s.logger.Warn("Shoe exhausted", "table", ev.TableID, "round", ev.RoundID, "phase", ev.Phase)
	}
}
