// Package history records resolved rounds to a database.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/blackjack"
	"github.com/lox/blackjack/internal/round"
)

// ErrUnknownDriver is returned by Open for unsupported drivers
var ErrUnknownDriver = errors.New("unknown history driver")

// Round is one resolved round as stored
type Round struct {
	RoundID     string
	TableID     string
	ResolvedAt  time.Time
	DealerCards string
	DealerTotal int
	DealerBust  bool
	Seats       []SeatRecord
}

// SeatRecord is one seat's result within a stored round
type SeatRecord struct {
	Seat    int
	Cards   string
	Total   int
	Bust    bool
	Outcome string
}

// Store persists resolved rounds
type Store interface {
	Record(ctx context.Context, r Round) error
	Recent(ctx context.Context, tableID string, limit int) ([]Round, error)
	Close() error
}

// Open returns the store for a driver: "sqlite", "postgres" or "none"
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	case "none", "":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// NopStore discards every round
type NopStore struct{}

func (NopStore) Record(context.Context, Round) error                  { return nil }
func (NopStore) Recent(context.Context, string, int) ([]Round, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }

// FromEvent converts a resolution event into a storable round
func FromEvent(ev round.RoundResolvedEvent) Round {
	r := Round{
		RoundID:     ev.RoundID,
		TableID:     ev.TableID,
		ResolvedAt:  ev.Timestamp().UTC(),
		DealerCards: formatCards(ev.DealerCards),
		DealerTotal: ev.Dealer.Best(),
		DealerBust:  ev.Dealer.Bust,
		Seats:       make([]SeatRecord, len(ev.Results)),
	}
	for i, res := range ev.Results {
		total := res.Score.Best()
		if res.Score.Bust {
			total = res.Score.Hard
		}
		r.Seats[i] = SeatRecord{
			Seat:    res.Seat,
			Cards:   formatCards(res.Cards),
			Total:   total,
			Bust:    res.Score.Bust,
			Outcome: res.Outcome.String(),
		}
	}
	if r.DealerBust {
		r.DealerTotal = ev.Dealer.Hard
	}
	return r
}

func formatCards(cards []blackjack.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Recorder is a round.Sink that queues resolved rounds and writes them to a
// store from its own goroutine.
type Recorder struct {
	store  Store
	logger *log.Logger
	queue  chan Round
}

// NewRecorder creates a recorder with a bounded queue
func NewRecorder(store Store, logger *log.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.WithPrefix("history"),
		queue:  make(chan Round, 64),
	}
}

// OnEvent implements round.Sink
func (r *Recorder) OnEvent(event round.Event) {
	ev, ok := event.(round.RoundResolvedEvent)
	if !ok {
		return
	}
	select {
	case r.queue <- FromEvent(ev):
	default:
		r.logger.Warn("History queue full, dropping round", "round", ev.RoundID, "table", ev.TableID)
	}
}

// Run writes queued rounds until ctx is cancelled, then flushes what is left
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case rnd := <-r.queue:
			if ctx.Err() != nil {
				r.flush(rnd)
				return nil
			}
			r.write(ctx, rnd)
		case <-ctx.Done():
			r.flush()
			return nil
		}
	}
}

// flush writes pending and everything still queued with a fresh deadline
func (r *Recorder) flush(pending ...Round) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, rnd := range pending {
		r.write(ctx, rnd)
	}
	for {
		select {
		case rnd := <-r.queue:
			r.write(ctx, rnd)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, rnd Round) {
	if err := r.store.Record(ctx, rnd); err != nil {
		r.logger.Error("Failed to record round", "round", rnd.RoundID, "error", err)
		return
	}
	r.logger.Debug("Recorded round", "round", rnd.RoundID, "table", rnd.TableID, "seats", len(rnd.Seats))
}
